package report

import (
	"io"

	"github.com/nao1215/metanull/internal/model"
)

// Writer defines the interface for report output.
// Implementations write inspection reports and sanitize results in
// various formats.
type Writer interface {
	// WriteReport outputs a metadata inspection report.
	// Returns the number of bytes written and any error encountered.
	WriteReport(report *model.MetadataReport) (int, error)

	// WriteResults outputs the outcome of one or more sanitize runs.
	WriteResults(results []*model.SanitizationResult) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteReport outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteReport(report *model.MetadataReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteReport(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteResults outputs the results to all configured Writers.
func (m *MultiWriter) WriteResults(results []*model.SanitizationResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteResults(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Tally counts successful and failed runs.
func Tally(results []*model.SanitizationResult) (succeeded, failed int) {
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// diagnosticKinds returns the kinds of a result's diagnostics in order.
func diagnosticKinds(r *model.SanitizationResult) []string {
	kinds := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		kinds = append(kinds, string(d.Kind))
	}
	return kinds
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
