package csvexport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"billparse/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Extraction ID",
	"Input Kind",
	"Currency",
	"Confidence",
	"Validation Status",
	"Amounts",
	"Corrections",
	"Candidate Count",
	"Archive Key",
	"Created At",
}

// Writer wraps csv.Writer for exporting extraction records as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecords converts a batch of extraction records to CSV rows and writes them.
func (w *Writer) WriteRecords(recs []domain.ExtractionRecord) error {
	for i := range recs {
		row := recordToRow(&recs[i])
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// recordToRow converts a single extraction record to a string slice matching columns.
func recordToRow(rec *domain.ExtractionRecord) []string {
	row := make([]string, len(columns))
	row[0] = rec.ID.String()
	row[1] = string(rec.InputKind)
	row[2] = rec.Currency
	row[3] = strconv.FormatFloat(rec.Confidence, 'f', 2, 64)
	row[4] = string(rec.ValidationStatus)
	row[5] = summarizeAmounts(rec.Amounts)
	row[6] = strconv.Itoa(rec.Corrections)
	row[7] = strconv.Itoa(rec.CandidateCount)
	row[8] = rec.ArchiveKey
	row[9] = rec.CreatedAt.Format(time.RFC3339)
	return row
}

// summarizeAmounts flattens the stored amounts JSON into "type=value" pairs.
// Invalid JSON yields an empty cell rather than failing the export.
func summarizeAmounts(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var amounts []domain.ClassifiedAmount
	if err := json.Unmarshal(raw, &amounts); err != nil {
		return ""
	}
	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Type, strconv.FormatFloat(a.Value, 'f', -1, 64)))
	}
	return strings.Join(parts, "; ")
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	sanitized := SanitizeFilename(name)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", sanitized, date, ext)
}
