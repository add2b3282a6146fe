package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"billparse/internal/domain"
	"billparse/internal/handler"
	"billparse/mocks"
)

func newHistoryHandler() (*handler.HistoryHandler, *mocks.MockExtractionService) {
	mockSvc := new(mocks.MockExtractionService)
	h := handler.NewHistoryHandler(mockSvc)
	return h, mockSvc
}

func sampleRecord() domain.ExtractionRecord {
	return domain.ExtractionRecord{
		ID:               uuid.New(),
		InputKind:        domain.InputKindText,
		Currency:         "INR",
		Confidence:       0.97,
		ValidationStatus: domain.ValidationOK,
		Amounts:          json.RawMessage(`[{"type":"total_bill","value":1500,"source":"Total: 1500"}]`),
		Corrections:      1,
		CandidateCount:   3,
		CreatedAt:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestHistoryHandler_List_Success(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	recs := []domain.ExtractionRecord{sampleRecord(), sampleRecord()}
	mockSvc.On("List", mock.Anything, 0, 20).Return(recs, 2, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/extractions", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.Limit)
	mockSvc.AssertExpectations(t)
}

func TestHistoryHandler_List_ClampsPagination(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	mockSvc.On("List", mock.Anything, 0, 20).Return([]domain.ExtractionRecord{}, 0, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/extractions?offset=-5&limit=500", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestHistoryHandler_List_HistoryDisabled(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	mockSvc.On("List", mock.Anything, 0, 20).Return(nil, 0, domain.ErrHistoryDisabled)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/extractions", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "HISTORY_DISABLED", resp.Error.Code)
}

func TestHistoryHandler_GetByID_Success(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	rec := sampleRecord()
	mockSvc.On("GetByID", mock.Anything, rec.ID).Return(&rec, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/extractions/"+rec.ID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: rec.ID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	mockSvc.AssertExpectations(t)
}

func TestHistoryHandler_GetByID_InvalidID(t *testing.T) {
	h, mockSvc := newHistoryHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/extractions/not-a-uuid", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_ID", resp.Error.Code)
	mockSvc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHistoryHandler_GetByID_NotFound(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	id := uuid.New()
	mockSvc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/extractions/"+id.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestHistoryHandler_ExportCSV_Success(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	mockSvc.On("List", mock.Anything, 0, 1000).
		Return([]domain.ExtractionRecord{sampleRecord()}, 1, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/exports/csv", http.NoBody)

	h.ExportCSV(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

	body := w.Body.Bytes()
	assert.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(body), "Extraction ID")
	assert.Contains(t, string(body), "validation_ok")
	assert.Contains(t, string(body), "total_bill=1500")
}

func TestHistoryHandler_ExportCSV_HistoryDisabled(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	mockSvc.On("List", mock.Anything, 0, 1000).Return(nil, 0, domain.ErrHistoryDisabled)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/exports/csv", http.NoBody)

	h.ExportCSV(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandler_ExportXLSX_Success(t *testing.T) {
	h, mockSvc := newHistoryHandler()
	mockSvc.On("List", mock.Anything, 0, 1000).
		Return([]domain.ExtractionRecord{sampleRecord()}, 1, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/exports/xlsx", http.NoBody)

	h.ExportXLSX(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}
