// Package pipeline implements the four-stage amount extraction pipeline:
// OCR-confusion normalization, numeric candidate extraction, keyword-based
// classification, and arithmetic validation with confidence scoring.
//
// A Pipeline is stateless apart from its immutable policy configuration and is
// safe for concurrent use; each Run is a pure computation over its input text.
package pipeline

import (
	"strings"

	"billparse/internal/config"
	"billparse/internal/domain"
)

// Pipeline runs the extraction stages in order.
type Pipeline struct {
	cfg       *config.PipelineConfig
	extractor *Extractor
}

// New creates a Pipeline with the given policy configuration.
func New(cfg *config.PipelineConfig) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		extractor: NewExtractor(cfg.ContextWindow),
	}
}

// RunStats carries per-run counters surfaced alongside the result.
type RunStats struct {
	Corrections int
	Candidates  int
}

// Run executes normalize → extract → classify → validate → score over rawText.
// currency is echoed verbatim into the result. Blank input is the only fatal
// condition; every other anomaly degrades into the structured output.
func (p *Pipeline) Run(rawText, currency string) (*domain.ExtractionResult, *RunStats, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, nil, domain.ErrInputMissing
	}

	clean, corrections := Normalize(rawText)
	candidates := p.extractor.Extract(clean)
	stats := &RunStats{Corrections: corrections, Candidates: len(candidates)}

	if len(candidates) == 0 {
		// ScoringDegenerate: nothing extracted is a reportable outcome, not a
		// failure.
		return &domain.ExtractionResult{
			Confidence:       0.0,
			Currency:         currency,
			Amounts:          []domain.ClassifiedAmount{},
			ValidationStatus: domain.ValidationPartial,
			Status:           "ok",
		}, stats, nil
	}

	amounts := make([]domain.ClassifiedAmount, 0, len(candidates))
	classified := 0
	for i := range candidates {
		t := Classify(&candidates[i])
		if t != domain.AmountTypeOther {
			classified++
		}
		amounts = append(amounts, domain.ClassifiedAmount{
			Type:   t,
			Value:  candidates[i].Value,
			Source: candidates[i].ContextWindow,
		})
	}

	confidence := p.score(classified, len(candidates), corrections)
	amounts, status := p.validate(amounts)

	return &domain.ExtractionResult{
		Confidence:       confidence,
		Currency:         currency,
		Amounts:          amounts,
		ValidationStatus: status,
		Status:           "ok",
	}, stats, nil
}
