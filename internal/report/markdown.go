package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/metanull/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteReport outputs the inspection report in Markdown format.
func (w *MarkdownWriter) WriteReport(report *model.MetadataReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := model.NewSummary(report)

	w.writeReportHeader(md, report, summary)
	w.writeSummary(md, summary)
	w.writeSections(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteResults outputs sanitize results in Markdown format.
func (w *MarkdownWriter) WriteResults(results []*model.SanitizationResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	succeeded, failed := Tally(results)

	md.H1("metanull Sanitize Results")
	md.PlainText("")

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		status := "✅ Sanitized"
		output := "`" + r.OutputPath + "`"
		if !r.Success {
			status = "❌ " + truncateString(r.ErrorMessage, 60)
			output = "-"
		}
		kinds := diagnosticKinds(r)
		diag := "-"
		if len(kinds) > 0 {
			diag = strings.Join(kinds, ", ")
		}
		quality := "-"
		if r.Config.Format.UsesQuality() {
			quality = strconv.Itoa(r.Config.Quality)
		}
		rows = append(rows, []string{
			"`" + r.InputPath + "`",
			output,
			r.Config.Format.String(),
			quality,
			status,
			diag,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Input", "Output", "Format", "Quality", "Status", "Diagnostics"},
		Rows:   rows,
	})
	md.PlainText("")

	if failed > 0 {
		md.Warningf("%d of %d file(s) could not be sanitized.", failed, succeeded+failed)
	} else {
		md.Tip("All " + strconv.Itoa(succeeded) + " file(s) sanitized.")
	}
	md.PlainText("")

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeReportHeader writes the file and image property table.
func (w *MarkdownWriter) writeReportHeader(md *markdown.Markdown, report *model.MetadataReport, s *model.Summary) {
	md.H1("metanull Inspection Report")
	md.PlainText("")

	status := "⚠️ Metadata found"
	if s.Clean {
		status = "✅ Clean"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"File", "`" + report.File.Path + "`"},
			{"Size", strconv.FormatInt(report.File.Size, 10) + " bytes"},
			{"Format", report.Image.Format.String()},
			{"Mode", string(report.Image.Mode)},
			{"Dimensions", strconv.Itoa(report.Image.Width) + "x" + strconv.Itoa(report.Image.Height)},
			{"Inspected", report.InspectedAt.Format(timeLayout)},
			{"Status", status},
		},
	})
	md.PlainText("")
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.Summary) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(s.CriticalCount)},
			{"🟠 High", strconv.Itoa(s.HighCount)},
			{"🟡 Medium", strconv.Itoa(s.MediumCount)},
			{"🔵 Low", strconv.Itoa(s.LowCount)},
			{"⚪ Info", strconv.Itoa(s.InfoCount)},
			{"**Total**", "**" + strconv.Itoa(s.TotalEntries()) + "**"},
		},
	})
	md.PlainText("")

	if s.TotalEntries() > 0 {
		w.writePieChart(md, s)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Metadata Severity Distribution"),
		piechart.WithShowData(true),
	)

	counts := []struct {
		label string
		n     int
	}{
		{"Critical", s.CriticalCount},
		{"High", s.HighCount},
		{"Medium", s.MediumCount},
		{"Low", s.LowCount},
		{"Info", s.InfoCount},
	}
	for _, c := range counts {
		if c.n > 0 {
			chart.LabelAndIntValue(c.label, uint64(c.n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	switch {
	case s.CriticalCount > 0:
		md.Cautionf(
			"Location data found! %d critical entr(ies) reveal where the image was taken.",
			s.CriticalCount,
		)
	case s.HighCount > 0:
		md.Warningf(
			"Identifying metadata found. %d high severity entr(ies) point at a device or person.",
			s.HighCount,
		)
	case len(s.UnavailableSections) > 0:
		md.Importantf(
			"%d section(s) could not be parsed; absence of metadata is not confirmed.",
			len(s.UnavailableSections),
		)
	case s.TotalEntries() > 0:
		md.Note("Only medium, low severity and informational metadata found.")
	default:
		md.Tip("No metadata found.")
	}
	md.PlainText("")
}

// writeSections writes one table per metadata section.
func (w *MarkdownWriter) writeSections(md *markdown.Markdown, report *model.MetadataReport) {
	md.H2("Sections")
	md.PlainText("")

	for i := range report.Sections {
		sec := &report.Sections[i]
		md.PlainText("### " + string(sec.Name))
		md.PlainText("")

		switch {
		case !sec.Available:
			md.PlainTextf("Unavailable: %s", sec.Diagnostic)
			md.PlainText("")
			continue
		case len(sec.Entries) == 0:
			md.PlainText("No entries.")
			md.PlainText("")
			continue
		}

		rows := make([][]string, len(sec.Entries))
		for j, e := range sec.Entries {
			rows[j] = []string{e.Tag, truncateString(e.Value, 50), e.SeverityText}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Tag", "Value", "Severity"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [metanull](https://github.com/nao1215/metanull)*")
}
