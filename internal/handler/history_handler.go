package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billparse/internal/csvexport"
	"billparse/internal/service"
)

// exportBatchSize bounds how many records a single export fetches.
const exportBatchSize = 1000

// HistoryHandler serves the persisted extraction history.
type HistoryHandler struct {
	extractionService service.ExtractionService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(extractionService service.ExtractionService) *HistoryHandler {
	return &HistoryHandler{extractionService: extractionService}
}

func paginationParams(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}

// List handles GET /api/v1/extractions.
func (h *HistoryHandler) List(c *gin.Context) {
	offset, limit := paginationParams(c)

	recs, total, err := h.extractionService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, recs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/extractions/:id.
func (h *HistoryHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction id")
		return
	}

	rec, err := h.extractionService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// ExportCSV handles GET /api/v1/exports/csv.
func (h *HistoryHandler) ExportCSV(c *gin.Context) {
	recs, _, err := h.extractionService.List(c.Request.Context(), 0, exportBatchSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename("extractions", "csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		log.Printf("historyHandler.ExportCSV: writing BOM: %v", err)
		return
	}

	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		log.Printf("historyHandler.ExportCSV: writing header: %v", err)
		return
	}
	if err := w.WriteRecords(recs); err != nil {
		log.Printf("historyHandler.ExportCSV: writing records: %v", err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("historyHandler.ExportCSV: flushing: %v", err)
	}
}

// ExportXLSX handles GET /api/v1/exports/xlsx.
func (h *HistoryHandler) ExportXLSX(c *gin.Context) {
	recs, _, err := h.extractionService.List(c.Request.Context(), 0, exportBatchSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename("extractions", "xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := csvexport.WriteXLSX(c.Writer, recs); err != nil {
		log.Printf("historyHandler.ExportXLSX: writing workbook: %v", err)
	}
}
