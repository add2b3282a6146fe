package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"billparse/internal/port"
)

// circuitState tracks rate-limit backoff for a single engine.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackEngine tries engines in order, skipping those with open circuits.
// It implements port.OCREngine.
type FallbackEngine struct {
	engines  []port.OCREngine
	circuits []*circuitState
	names    []string
}

// NewFallbackEngine creates a FallbackEngine from an ordered list of engines
// and their names.
func NewFallbackEngine(engines []port.OCREngine, names []string) *FallbackEngine {
	circuits := make([]*circuitState, len(engines))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackEngine{
		engines:  engines,
		circuits: circuits,
		names:    names,
	}
}

func (f *FallbackEngine) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, e := range f.engines {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("ocr.FallbackEngine: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := e.Recognize(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var rle *RateLimitError
		if errors.As(err, &rle) {
			resetAt := now.Add(rle.RetryAfter)
			f.circuits[i].open(resetAt)
			log.Printf("ocr.FallbackEngine: %s rate limited, circuit open until %s", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		allRateLimited = false
		log.Printf("ocr.FallbackEngine: %s failed: %v", f.names[i], err)
	}

	if lastErr == nil && !earliestReset.IsZero() {
		return nil, fmt.Errorf("all ocr engines rate limited until %s", earliestReset.Format(time.RFC3339))
	}
	if lastErr != nil && allRateLimited && !earliestReset.IsZero() {
		return nil, fmt.Errorf("all ocr engines rate limited until %s: %w", earliestReset.Format(time.RFC3339), lastErr)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no ocr engines configured")
}
