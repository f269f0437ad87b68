package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/metanull/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and plain ASCII so that it can be piped anywhere.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with the privacy impact of each tag.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteReport outputs a metadata report in human-readable format.
func (w *SimpleWriter) WriteReport(report *model.MetadataReport) (int, error) {
	var sb strings.Builder
	summary := model.NewSummary(report)

	w.writeBanner(&sb, "METANULL INSPECTION REPORT")

	fmt.Fprintf(&sb, "File:      %s\n", report.File.Path)
	fmt.Fprintf(&sb, "Size:      %d bytes\n", report.File.Size)
	fmt.Fprintf(&sb, "Image:     %s %s %dx%d\n", report.Image.Format, report.Image.Mode, report.Image.Width, report.Image.Height)
	fmt.Fprintf(&sb, "Inspected: %s\n", report.InspectedAt.Format(timeLayout))
	if summary.Clean {
		sb.WriteString("Status:    CLEAN\n")
	} else if highest, ok := summary.HighestSeverity(); ok {
		fmt.Fprintf(&sb, "Status:    METADATA FOUND (highest: %s)\n", highest)
	} else {
		sb.WriteString("Status:    METADATA FOUND\n")
	}
	sb.WriteString("\n")

	w.writeSummary(&sb, summary)

	for i := range report.Sections {
		w.writeSection(&sb, &report.Sections[i])
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteResults outputs sanitize results in human-readable format.
func (w *SimpleWriter) WriteResults(results []*model.SanitizationResult) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "METANULL SANITIZE RESULTS")

	for _, r := range results {
		if r == nil {
			continue
		}
		w.writeResult(&sb, r)
	}

	succeeded, failed := Tally(results)
	writeRule(&sb, "-")
	fmt.Fprintf(&sb, "Succeeded: %d\n", succeeded)
	fmt.Fprintf(&sb, "Failed:    %d\n", failed)
	sb.WriteString("\n")

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	fmt.Fprintf(sb, "%*s\n", 35+len(title)/2, title)
	writeRule(sb, "=")
	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *model.Summary) {
	writeHeading(sb, "SEVERITY SUMMARY")

	fmt.Fprintf(sb, "  CRITICAL: %d\n", s.CriticalCount)
	fmt.Fprintf(sb, "  HIGH:     %d\n", s.HighCount)
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", s.MediumCount)
	fmt.Fprintf(sb, "  LOW:      %d\n", s.LowCount)
	fmt.Fprintf(sb, "  INFO:     %d\n", s.InfoCount)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d entries\n", s.TotalEntries())
	sb.WriteString("\n")
}

// writeSection writes one metadata section.
func (w *SimpleWriter) writeSection(sb *strings.Builder, sec *model.Section) {
	if sec.IsEmpty() && !w.showEmpty {
		return
	}

	writeHeading(sb, strings.ToUpper(string(sec.Name)))

	switch {
	case !sec.Available:
		fmt.Fprintf(sb, "  (unavailable: %s)\n", sec.Diagnostic)
	case len(sec.Entries) == 0:
		sb.WriteString("  No entries\n")
	default:
		for _, e := range sec.Entries {
			fmt.Fprintf(sb, "  [%s] %s: %s\n", severityIndicator(e.Severity), e.Tag, e.Value)
			if w.verbose {
				fmt.Fprintf(sb, "    Impact: %s\n", model.GetTagInfo(e.Tag).Impact)
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, r *model.SanitizationResult) {
	if r.Success {
		fmt.Fprintf(sb, "[OK]     %s -> %s\n", r.InputPath, r.OutputPath)
	} else {
		fmt.Fprintf(sb, "[FAILED] %s\n", r.InputPath)
		fmt.Fprintf(sb, "    Error: %s\n", r.ErrorMessage)
	}

	fmt.Fprintf(sb, "    Format: %s  Quality: %d  State: %s\n", r.Config.Format, r.Config.Quality, r.State)
	if r.PixelAlteration {
		fmt.Fprintf(sb, "    Pixel alteration: %d pixels\n", r.PerturbedPixels)
	}
	if !r.Timestamp.IsZero() {
		fmt.Fprintf(sb, "    Timestamp: %s\n", r.Timestamp.Format(timeLayout))
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(sb, "    Diagnostic (%s): %s\n", d.Kind, d.Message)
	}
	if w.verbose && len(r.PerformedSteps) > 0 {
		fmt.Fprintf(sb, "    Steps: %s\n", strings.Join(r.PerformedSteps, ", "))
		fmt.Fprintf(sb, "    Duration: %s\n", r.Duration)
	}
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	writeRule(sb, "=")
	sb.WriteString("Report generated by metanull\n")
	sb.WriteString("https://github.com/nao1215/metanull\n")
	writeRule(sb, "=")
}

func writeHeading(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
	sb.WriteString("\n")
}

func writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}
