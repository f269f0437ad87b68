package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/metanull/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is stamped into every document.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the metanull version recorded in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport wraps an inspection report with its summary and the
// producing version.
type JSONReport struct {
	// Version is the metanull version that generated this report.
	Version string `json:"version,omitempty"`

	// Report is the full inspection report.
	Report *model.MetadataReport `json:"report"`

	// Summary is the severity roll-up for quick access.
	Summary *model.Summary `json:"summary"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.MetadataReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Report:  report,
		Summary: model.NewSummary(report),
	}
}

// JSONResults wraps sanitize results with success and failure counts.
type JSONResults struct {
	Version   string                      `json:"version,omitempty"`
	Succeeded int                         `json:"succeeded"`
	Failed    int                         `json:"failed"`
	Results   []*model.SanitizationResult `json:"results"`
}

// NewJSONResults creates a JSONResults wrapper.
func NewJSONResults(results []*model.SanitizationResult, version string) *JSONResults {
	succeeded, failed := Tally(results)
	if results == nil {
		results = []*model.SanitizationResult{}
	}
	return &JSONResults{
		Version:   version,
		Succeeded: succeeded,
		Failed:    failed,
		Results:   results,
	}
}

// WriteReport outputs the inspection report in JSON format.
func (w *JSONWriter) WriteReport(report *model.MetadataReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}

// WriteResults outputs sanitize results in JSON format.
func (w *JSONWriter) WriteResults(results []*model.SanitizationResult) (int, error) {
	return w.writeJSON(NewJSONResults(results, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
