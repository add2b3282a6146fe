package port

import (
	"context"

	"github.com/google/uuid"

	"billparse/internal/domain"
)

// ExtractionRepository defines the contract for extraction history persistence.
type ExtractionRepository interface {
	Create(ctx context.Context, rec *domain.ExtractionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error)
}
