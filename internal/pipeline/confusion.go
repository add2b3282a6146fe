package pipeline

import "strings"

// confusionRule maps a single OCR-confusable character to its correction.
// Rules are evaluated top-to-bottom; the first matching rule wins, so more
// specific entries must precede broader ones.
type confusionRule struct {
	from rune
	to   string
}

// confusionMap is the ordered table of OCR misread corrections. Loaded once,
// never mutated; safe to share across concurrent requests.
var confusionMap = []confusionRule{
	{'O', "0"}, {'o', "0"},
	{'l', "1"}, {'I', "1"}, {'i', "1"}, {'|', "1"},
	{'S', "5"}, {'s', "5"},
	{'B', "8"}, {'b', "8"},
	{'Z', "2"}, {'z', "2"},
	{'E', "3"}, {'e', "3"},
	{'g', "9"}, {'G', "9"},
	{'A', "4"}, {'a', "4"},
	{',', ""},  // thousands separator
	{';', "."}, // misread decimal point
}

func confusionFor(r rune) (string, bool) {
	for _, rule := range confusionMap {
		if rule.from == r {
			return rule.to, true
		}
	}
	return "", false
}

func isConfusable(r rune) bool {
	_, ok := confusionFor(r)
	return ok
}

// numericish reports whether r can belong to a numeric-like run.
func numericish(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == '%' || isConfusable(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Normalize rewrites OCR-confusable characters inside numeric-like runs of the
// input and returns the cleaned text plus the number of substitutions applied.
//
// A confusable character is only rewritten when a digit appears both before
// and after it within the same run, so prose is never altered and a stray
// letter at a token edge ("1st", "15O") is left alone. Re-running Normalize on
// its own output performs zero substitutions.
func Normalize(raw string) (string, int) {
	runes := []rune(raw)
	var b strings.Builder
	b.Grow(len(raw))
	corrections := 0

	for pos := 0; pos < len(runes); {
		if !numericish(runes[pos]) {
			b.WriteRune(runes[pos])
			pos++
			continue
		}

		// Collect the maximal numeric-like run starting at pos.
		end := pos
		hasDigit := false
		for end < len(runes) && numericish(runes[end]) {
			if isDigit(runes[end]) {
				hasDigit = true
			}
			end++
		}

		run := runes[pos:end]
		if !hasDigit {
			// No digit anywhere in the run: leave it untouched.
			b.WriteString(string(run))
			pos = end
			continue
		}

		for i, r := range run {
			repl, confusable := confusionFor(r)
			if !confusable {
				b.WriteRune(r)
				continue
			}
			if digitBefore(run, i) && digitAfter(run, i) {
				b.WriteString(repl)
				corrections++
			} else {
				b.WriteRune(r)
			}
		}
		pos = end
	}

	return b.String(), corrections
}

func digitBefore(run []rune, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if isDigit(run[j]) {
			return true
		}
	}
	return false
}

func digitAfter(run []rune, i int) bool {
	for j := i + 1; j < len(run); j++ {
		if isDigit(run[j]) {
			return true
		}
	}
	return false
}
