package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"billparse/internal/port"
)

// MockOCREngine is a mock implementation of port.OCREngine.
type MockOCREngine struct {
	mock.Mock
}

func (m *MockOCREngine) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RecognizeOutput), args.Error(1)
}
