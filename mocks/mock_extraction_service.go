package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"billparse/internal/domain"
	"billparse/internal/service"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) ExtractFromText(ctx context.Context, text, currencyHint string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, text, currencyHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) ExtractFromImage(ctx context.Context, input service.ImageExtractInput) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRecord), args.Error(1)
}

func (m *MockExtractionService) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionRecord), args.Int(1), args.Error(2)
}
