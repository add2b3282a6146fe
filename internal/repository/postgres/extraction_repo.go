package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"billparse/internal/domain"
	"billparse/internal/port"
)

type extractionRepo struct {
	db *sqlx.DB
}

// NewExtractionRepo creates a new PostgreSQL-backed ExtractionRepository.
func NewExtractionRepo(db *sqlx.DB) port.ExtractionRepository {
	return &extractionRepo{db: db}
}

func (r *extractionRepo) Create(ctx context.Context, rec *domain.ExtractionRecord) error {
	rec.CreatedAt = time.Now().UTC()

	query := `INSERT INTO extractions
		(id, input_kind, currency, confidence, validation_status, amounts,
		 corrections, candidate_count, archive_bucket, archive_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.InputKind, rec.Currency, rec.Confidence, rec.ValidationStatus,
		rec.Amounts, rec.Corrections, rec.CandidateCount, rec.ArchiveBucket,
		rec.ArchiveKey, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create: %w", err)
	}
	return nil
}

func (r *extractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	var rec domain.ExtractionRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT * FROM extractions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *extractionRepo) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM extractions")
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List count: %w", err)
	}

	var recs []domain.ExtractionRecord
	err = r.db.SelectContext(ctx, &recs,
		`SELECT * FROM extractions
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List: %w", err)
	}
	return recs, total, nil
}
