package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"billparse/internal/config"
	"billparse/internal/domain"
	"billparse/internal/pipeline"
	"billparse/internal/port"
)

// ImageExtractInput is the DTO for image-based extraction requests.
type ImageExtractInput struct {
	File         multipart.File
	Header       *multipart.FileHeader
	CurrencyHint string
}

// ExtractionService defines the amount extraction contract.
type ExtractionService interface {
	ExtractFromText(ctx context.Context, text, currencyHint string) (*domain.ExtractionResult, error)
	ExtractFromImage(ctx context.Context, input ImageExtractInput) (*domain.ExtractionResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error)
}

type extractionService struct {
	pipe       *pipeline.Pipeline
	ocrEngine  port.OCREngine            // nil when no provider configured
	repo       port.ExtractionRepository // nil when history disabled
	storage    port.ObjectStorage        // nil when archiving disabled
	archiveCfg *config.ArchiveConfig
}

// NewExtractionService creates a new ExtractionService implementation.
// ocrEngine, repo and storage are optional collaborators; passing nil disables
// the corresponding capability.
func NewExtractionService(
	pipe *pipeline.Pipeline,
	ocrEngine port.OCREngine,
	repo port.ExtractionRepository,
	storage port.ObjectStorage,
	archiveCfg *config.ArchiveConfig,
) ExtractionService {
	return &extractionService{
		pipe:       pipe,
		ocrEngine:  ocrEngine,
		repo:       repo,
		storage:    storage,
		archiveCfg: archiveCfg,
	}
}

func (s *extractionService) ExtractFromText(ctx context.Context, text, currencyHint string) (*domain.ExtractionResult, error) {
	result, stats, err := s.pipe.Run(text, currencyHint)
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.InputKindText, result, stats, "", "")
	return result, nil
}

func (s *extractionService) ExtractFromImage(ctx context.Context, input ImageExtractInput) (*domain.ExtractionResult, error) {
	if s.ocrEngine == nil {
		return nil, domain.ErrOCRUnavailable
	}

	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	contentType, ok := domain.AllowedFileTypes[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size
	maxBytes := s.archiveCfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	fileBytes, err := io.ReadAll(input.File)
	if err != nil {
		return nil, fmt.Errorf("reading uploaded file: %w", err)
	}

	// Magic-byte content type detection
	sniffLen := 512
	if len(fileBytes) < sniffLen {
		sniffLen = len(fileBytes)
	}
	detected := http.DetectContentType(fileBytes[:sniffLen])
	if !domain.AllowedContentTypes[detected] {
		return nil, domain.ErrUnsupportedFileType
	}

	out, err := s.ocrEngine.Recognize(ctx, port.RecognizeInput{
		FileBytes:   fileBytes,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr recognize: %w", err)
	}
	log.Printf("extractionService.ExtractFromImage: ocr produced %d chars via %s", len(out.Text), out.ModelUsed)

	result, stats, err := s.pipe.Run(out.Text, input.CurrencyHint)
	if err != nil {
		return nil, err
	}

	bucket, key := s.archive(ctx, fileBytes, contentType, input.Header.Filename)
	s.record(ctx, domain.InputKindImage, result, stats, bucket, key)
	return result, nil
}

// archive uploads the original image to the configured bucket. Best effort:
// a failed archive never fails the extraction.
func (s *extractionService) archive(ctx context.Context, fileBytes []byte, contentType, filename string) (bucket, key string) {
	if s.storage == nil || !s.archiveCfg.Enabled() {
		return "", ""
	}

	key = fmt.Sprintf("receipts/%s/%s", uuid.New(), filename)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.archiveCfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(fileBytes),
		ContentType: contentType,
		Size:        int64(len(fileBytes)),
	})
	if err != nil {
		log.Printf("extractionService.archive: upload failed: %v", err)
		return "", ""
	}
	return s.archiveCfg.Bucket, key
}

// record persists an extraction run when history is enabled. Best effort: a
// failed insert never fails the request.
func (s *extractionService) record(ctx context.Context, kind domain.InputKind, result *domain.ExtractionResult, stats *pipeline.RunStats, bucket, key string) {
	if s.repo == nil {
		return
	}

	amounts, err := json.Marshal(result.Amounts)
	if err != nil {
		log.Printf("extractionService.record: marshaling amounts: %v", err)
		return
	}

	rec := &domain.ExtractionRecord{
		ID:               uuid.New(),
		InputKind:        kind,
		Currency:         result.Currency,
		Confidence:       result.Confidence,
		ValidationStatus: result.ValidationStatus,
		Amounts:          amounts,
		Corrections:      stats.Corrections,
		CandidateCount:   stats.Candidates,
		ArchiveBucket:    bucket,
		ArchiveKey:       key,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		log.Printf("extractionService.record: persisting extraction: %v", err)
	}
}

func (s *extractionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrHistoryDisabled
	}
	return s.repo.GetByID(ctx, id)
}

func (s *extractionService) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	if s.repo == nil {
		return nil, 0, domain.ErrHistoryDisabled
	}
	return s.repo.List(ctx, offset, limit)
}
