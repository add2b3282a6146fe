package service_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"billparse/internal/config"
	"billparse/internal/domain"
	"billparse/internal/pipeline"
	"billparse/internal/port"
	"billparse/internal/service"
	"billparse/mocks"
)

// pngBytes is a minimal payload carrying the PNG magic number, enough for
// content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type fakeFile struct {
	*bytes.Reader
}

func (fakeFile) Close() error { return nil }

func newImageInput(filename string, content []byte, size int64) service.ImageExtractInput {
	return service.ImageExtractInput{
		File:         fakeFile{bytes.NewReader(content)},
		Header:       &multipart.FileHeader{Filename: filename, Size: size},
		CurrencyHint: "INR",
	}
}

func testArchiveConfig() *config.ArchiveConfig {
	return &config.ArchiveConfig{MaxFileSizeMB: 20}
}

func newTestPipeline() *pipeline.Pipeline {
	return pipeline.New(&config.PipelineConfig{
		ContextWindow:        2,
		Tolerance:            0.01,
		NormalizationWeight:  0.5,
		ClassificationWeight: 0.5,
		CorrectionPenalty:    0.25,
		NormalizationFloor:   0.6,
		ClassificationCap:    0.95,
	})
}

func TestExtractFromText_Success(t *testing.T) {
	svc := service.NewExtractionService(newTestPipeline(), nil, nil, nil, testArchiveConfig())

	result, err := svc.ExtractFromText(context.Background(), "Total: 1500 | Paid: 1250 | Due: 250", "INR")

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, domain.ValidationOK, result.ValidationStatus)
	assert.Len(t, result.Amounts, 3)
}

func TestExtractFromText_BlankInput(t *testing.T) {
	svc := service.NewExtractionService(newTestPipeline(), nil, nil, nil, testArchiveConfig())

	result, err := svc.ExtractFromText(context.Background(), "   ", "INR")

	assert.ErrorIs(t, err, domain.ErrInputMissing)
	assert.Nil(t, result)
}

func TestExtractFromText_RecordsWhenHistoryEnabled(t *testing.T) {
	repo := new(mocks.MockExtractionRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.ExtractionRecord) bool {
		return rec.InputKind == domain.InputKindText &&
			rec.ValidationStatus == domain.ValidationOK &&
			rec.CandidateCount == 3
	})).Return(nil)

	svc := service.NewExtractionService(newTestPipeline(), nil, repo, nil, testArchiveConfig())

	_, err := svc.ExtractFromText(context.Background(), "Total: 1500 | Paid: 1250 | Due: 250", "INR")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestExtractFromText_RepoFailureDoesNotFailRequest(t *testing.T) {
	repo := new(mocks.MockExtractionRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := service.NewExtractionService(newTestPipeline(), nil, repo, nil, testArchiveConfig())

	result, err := svc.ExtractFromText(context.Background(), "Total: 1500", "INR")

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestExtractFromImage_NoEngineConfigured(t *testing.T) {
	svc := service.NewExtractionService(newTestPipeline(), nil, nil, nil, testArchiveConfig())

	result, err := svc.ExtractFromImage(context.Background(), newImageInput("bill.png", pngBytes, int64(len(pngBytes))))

	assert.ErrorIs(t, err, domain.ErrOCRUnavailable)
	assert.Nil(t, result)
}

func TestExtractFromImage_Success(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	engine.On("Recognize", mock.Anything, mock.MatchedBy(func(in port.RecognizeInput) bool {
		return in.ContentType == "image/png" && len(in.FileBytes) == len(pngBytes)
	})).Return(&port.RecognizeOutput{Text: "Total: 1500 | Paid: 1250 | Due: 250", ModelUsed: "gemini-2.0-flash"}, nil)

	svc := service.NewExtractionService(newTestPipeline(), engine, nil, nil, testArchiveConfig())

	result, err := svc.ExtractFromImage(context.Background(), newImageInput("bill.png", pngBytes, int64(len(pngBytes))))

	require.NoError(t, err)
	assert.Equal(t, domain.ValidationOK, result.ValidationStatus)
	assert.Len(t, result.Amounts, 3)
	engine.AssertExpectations(t)
}

func TestExtractFromImage_UnsupportedExtension(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	svc := service.NewExtractionService(newTestPipeline(), engine, nil, nil, testArchiveConfig())

	_, err := svc.ExtractFromImage(context.Background(), newImageInput("bill.gif", pngBytes, int64(len(pngBytes))))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	engine.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestExtractFromImage_FileTooLarge(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	svc := service.NewExtractionService(newTestPipeline(), engine, nil, nil, testArchiveConfig())

	input := newImageInput("bill.png", pngBytes, 21*1024*1024)
	_, err := svc.ExtractFromImage(context.Background(), input)

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestExtractFromImage_ContentSniffMismatch(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	svc := service.NewExtractionService(newTestPipeline(), engine, nil, nil, testArchiveConfig())

	// Extension says png but the bytes are plain text.
	input := newImageInput("bill.png", []byte("not an image at all"), 19)
	_, err := svc.ExtractFromImage(context.Background(), input)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	engine.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestExtractFromImage_EngineFailure(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	engine.On("Recognize", mock.Anything, mock.Anything).Return(nil, errors.New("provider exploded"))

	svc := service.NewExtractionService(newTestPipeline(), engine, nil, nil, testArchiveConfig())

	_, err := svc.ExtractFromImage(context.Background(), newImageInput("bill.png", pngBytes, int64(len(pngBytes))))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ocr recognize")
}

func TestExtractFromImage_ArchivesUpload(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	engine.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.RecognizeOutput{Text: "Total: 1500", ModelUsed: "gpt-4o-mini"}, nil)

	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "bills-archive" && in.ContentType == "image/png"
	})).Return(&port.UploadOutput{Location: "s3://bills-archive/x"}, nil)

	repo := new(mocks.MockExtractionRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.ExtractionRecord) bool {
		return rec.InputKind == domain.InputKindImage && rec.ArchiveBucket == "bills-archive" && rec.ArchiveKey != ""
	})).Return(nil)

	cfg := &config.ArchiveConfig{Bucket: "bills-archive", MaxFileSizeMB: 20}
	svc := service.NewExtractionService(newTestPipeline(), engine, repo, storage, cfg)

	_, err := svc.ExtractFromImage(context.Background(), newImageInput("bill.png", pngBytes, int64(len(pngBytes))))

	require.NoError(t, err)
	storage.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestExtractFromImage_ArchiveFailureIsBestEffort(t *testing.T) {
	engine := new(mocks.MockOCREngine)
	engine.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.RecognizeOutput{Text: "Total: 1500", ModelUsed: "gpt-4o-mini"}, nil)

	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("s3 down"))

	cfg := &config.ArchiveConfig{Bucket: "bills-archive", MaxFileSizeMB: 20}
	svc := service.NewExtractionService(newTestPipeline(), engine, nil, storage, cfg)

	result, err := svc.ExtractFromImage(context.Background(), newImageInput("bill.png", pngBytes, int64(len(pngBytes))))

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestGetByID_HistoryDisabled(t *testing.T) {
	svc := service.NewExtractionService(newTestPipeline(), nil, nil, nil, testArchiveConfig())

	_, err := svc.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrHistoryDisabled)
}

func TestGetByID_DelegatesToRepo(t *testing.T) {
	id := uuid.New()
	rec := &domain.ExtractionRecord{ID: id, InputKind: domain.InputKindText}

	repo := new(mocks.MockExtractionRepo)
	repo.On("GetByID", mock.Anything, id).Return(rec, nil)

	svc := service.NewExtractionService(newTestPipeline(), nil, repo, nil, testArchiveConfig())

	got, err := svc.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestList_HistoryDisabled(t *testing.T) {
	svc := service.NewExtractionService(newTestPipeline(), nil, nil, nil, testArchiveConfig())

	_, _, err := svc.List(context.Background(), 0, 20)

	assert.ErrorIs(t, err, domain.ErrHistoryDisabled)
}

func TestList_DelegatesToRepo(t *testing.T) {
	recs := []domain.ExtractionRecord{{ID: uuid.New()}, {ID: uuid.New()}}

	repo := new(mocks.MockExtractionRepo)
	repo.On("List", mock.Anything, 0, 20).Return(recs, 2, nil)

	svc := service.NewExtractionService(newTestPipeline(), nil, repo, nil, testArchiveConfig())

	got, total, err := svc.List(context.Background(), 0, 20)

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, got, 2)
}
