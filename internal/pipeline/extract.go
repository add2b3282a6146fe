package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"billparse/internal/domain"
)

// tokenPattern matches integers, decimals (one fractional separator) and
// percentages in normalized text.
var tokenPattern = regexp.MustCompile(`\d+(?:\.\d+)?%?`)

// segmentSplitter separates delimiter-bounded segments of a receipt line.
var segmentSplitter = regexp.MustCompile(`[|\n]`)

// Extractor locates numeric tokens in normalized text and captures a bounded
// context window around each one.
type Extractor struct {
	window int
}

// NewExtractor creates an Extractor capturing `window` words on either side of
// each token.
func NewExtractor(window int) *Extractor {
	if window <= 0 {
		window = 2
	}
	return &Extractor{window: window}
}

// wordSpan is a whitespace-separated word and its offsets in the source text.
type wordSpan struct {
	text  string
	start int
	end   int
}

func splitWords(text string) []wordSpan {
	var spans []wordSpan
	inWord := false
	start := 0
	for i, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if inWord {
				spans = append(spans, wordSpan{text: text[start:i], start: start, end: i})
				inWord = false
			}
			continue
		}
		if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		spans = append(spans, wordSpan{text: text[start:], start: start, end: len(text)})
	}
	return spans
}

// Extract returns the candidates found in clean, in left-to-right order of
// first character offset. A token whose numeric part fails to parse is dropped
// locally; the rest of the scan continues.
func (e *Extractor) Extract(clean string) []domain.Candidate {
	words := splitWords(clean)
	matches := tokenPattern.FindAllStringIndex(clean, -1)

	candidates := make([]domain.Candidate, 0, len(matches))
	for _, m := range matches {
		raw := clean[m[0]:m[1]]
		value, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			RawText:       raw,
			Value:         value,
			StartOffset:   m[0],
			EndOffset:     m[1],
			ContextWindow: e.contextWindow(clean, words, m[0], raw),
		})
	}
	return candidates
}

// contextWindow captures ±window words around the token, then narrows to the
// delimiter-separated segment containing it. The result is stored once and
// echoed verbatim as the output's source field.
func (e *Extractor) contextWindow(clean string, words []wordSpan, tokenStart int, raw string) string {
	wordIdx := 0
	for i, w := range words {
		if w.start <= tokenStart && tokenStart < w.end {
			wordIdx = i
			break
		}
	}

	lo := wordIdx - e.window
	if lo < 0 {
		lo = 0
	}
	hi := wordIdx + e.window + 1
	if hi > len(words) {
		hi = len(words)
	}

	// The word join collapses newlines, so slice the original text to keep
	// segment delimiters visible for narrowing.
	snippet := clean[words[lo].start:words[hi-1].end]

	for _, part := range segmentSplitter.Split(snippet, -1) {
		if strings.Contains(part, raw) {
			return strings.TrimSpace(part)
		}
	}
	return strings.TrimSpace(snippet)
}
