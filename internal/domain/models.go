package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Candidate is a numeric token located in the normalized text, together with
// the context window the classifier will inspect. Immutable after extraction
// except for the type assigned by the classifier.
type Candidate struct {
	RawText       string
	Value         float64
	StartOffset   int
	EndOffset     int
	ContextWindow string
}

// IsPercent reports whether the token carried a trailing percent sign.
func (c *Candidate) IsPercent() bool {
	return len(c.RawText) > 0 && c.RawText[len(c.RawText)-1] == '%'
}

// ClassifiedAmount is a single typed amount in the extraction output. Source
// echoes the context window the classifier saw, verbatim.
type ClassifiedAmount struct {
	Type   AmountType `json:"type"`
	Value  float64    `json:"value"`
	Source string     `json:"source"`
}

// ExtractionResult is the terminal artifact of the pipeline. The wire shape is
// fixed for compatibility and must not be wrapped in the API envelope.
type ExtractionResult struct {
	Confidence       float64            `json:"confidence"`
	Currency         string             `json:"currency"`
	Amounts          []ClassifiedAmount `json:"amounts"`
	ValidationStatus ValidationStatus   `json:"validation_status"`
	Status           string             `json:"status"`
}

// ExtractionRecord is a persisted extraction run, kept for history and export.
type ExtractionRecord struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	InputKind        InputKind        `db:"input_kind" json:"input_kind"`
	Currency         string           `db:"currency" json:"currency"`
	Confidence       float64          `db:"confidence" json:"confidence"`
	ValidationStatus ValidationStatus `db:"validation_status" json:"validation_status"`
	Amounts          json.RawMessage  `db:"amounts" json:"amounts"`
	Corrections      int              `db:"corrections" json:"corrections"`
	CandidateCount   int              `db:"candidate_count" json:"candidate_count"`
	ArchiveBucket    string           `db:"archive_bucket" json:"-"`
	ArchiveKey       string           `db:"archive_key" json:"archive_key,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}
