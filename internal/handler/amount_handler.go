package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billparse/internal/domain"
	"billparse/internal/service"
)

// AmountHandler handles the amount extraction endpoint.
type AmountHandler struct {
	extractionService service.ExtractionService
}

// NewAmountHandler creates a new AmountHandler.
func NewAmountHandler(extractionService service.ExtractionService) *AmountHandler {
	return &AmountHandler{extractionService: extractionService}
}

// Extract handles POST /v1/amounts/extract.
//
// Accepts multipart or URL-encoded form fields: file (image/PDF), text,
// currency_hint, llm_mode (accepted, reserved). Either file or text must be
// provided. On success the body is the raw ExtractionResult JSON, not the
// API envelope: the shape is fixed for compatibility with existing consumers.
func (h *AmountHandler) Extract(c *gin.Context) {
	currencyHint := c.PostForm("currency_hint")
	_ = c.PostForm("llm_mode") // reserved

	file, header, fileErr := c.Request.FormFile("file")
	text := c.PostForm("text")

	if fileErr != nil && text == "" {
		status, code, msg := MapDomainError(domain.ErrInputMissing)
		RespondError(c, status, code, msg)
		return
	}

	var result *domain.ExtractionResult
	var err error
	if fileErr == nil {
		defer func() { _ = file.Close() }()
		result, err = h.extractionService.ExtractFromImage(c.Request.Context(), service.ImageExtractInput{
			File:         file,
			Header:       header,
			CurrencyHint: currencyHint,
		})
	} else {
		result, err = h.extractionService.ExtractFromText(c.Request.Context(), text, currencyHint)
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
