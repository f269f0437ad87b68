package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/metanull/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.MetadataReport {
	report := model.NewMetadataReport()
	report.File = model.FileInfo{Name: "holiday.jpg", Path: "/photos/holiday.jpg", Size: 2048}
	report.Image = model.ImageInfo{Format: model.FormatJPEG, Mode: model.ModeRGB, Width: 64, Height: 48}

	report.Section(model.SectionDevice).Add("Make", "Canon")
	report.Section(model.SectionDevice).Add("Model", "EOS 5D")
	report.Section(model.SectionExif).Add("ISOSpeedRatings", "100")
	report.Section(model.SectionGPS).Add("GPSLatitude", "48/1, 51/1, 2400/100")
	report.Section(model.SectionEmbedded).Add(model.ICCProfileTag, "128 bytes")

	return report
}

func createTestResults() []*model.SanitizationResult {
	cfg := model.DefaultSanitizationConfig()

	ok := model.NewSanitizationResult("/in/a.jpg", "/out/a_sanitized.jpg", cfg)
	ok.Success = true
	ok.State = model.StateDone
	ok.PixelAlteration = true
	ok.PerturbedPixels = 12
	ok.Timestamp = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ok.PerformedSteps = []string{"decode", "reconstruct", "perturb", "encode"}
	ok.AddNote(model.DiagnosticModeConversion, "converted CMYK to RGB")

	bad := model.NewSanitizationResult("/in/b.txt", "/out/b_sanitized.jpg", cfg)
	bad.Fail(model.ErrNotAnImage)

	return []*model.SanitizationResult{ok, bad}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteReport(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"METANULL INSPECTION REPORT", "/photos/holiday.jpg", "JPEG RGB 64x48", "METADATA FOUND"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes severity summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteReport(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEVERITY SUMMARY") {
			t.Error("expected output to contain severity summary")
		}
		if !strings.Contains(output, "CRITICAL: 1") {
			t.Error("expected one critical entry")
		}
		if !strings.Contains(output, "TOTAL:    5 entries") {
			t.Error("expected total of 5 entries")
		}
	})

	t.Run("writes entries with indicators", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteReport(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"[!!!] GPSLatitude", "[!] Make: Canon", "[-] ICCProfile: 128 bytes", "GPS\n"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("hides empty sections by default", func(t *testing.T) {
		t.Parallel()

		report := model.NewMetadataReport()
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteReport(report); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "No entries") {
			t.Error("did not expect empty sections")
		}
		if !strings.Contains(buf.String(), "CLEAN") {
			t.Error("expected CLEAN status")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).WriteReport(report); err != nil {
			t.Fatal(err)
		}
		if strings.Count(buf.String(), "No entries") != 4 {
			t.Errorf("expected four empty sections, got:\n%s", buf.String())
		}
	})

	t.Run("verbose mode includes impact", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).WriteReport(createTestReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Impact: Latitude of the capture location.") {
			t.Error("expected impact text in verbose mode")
		}
	})

	t.Run("shows unavailable sections", func(t *testing.T) {
		t.Parallel()

		report := model.NewMetadataReport()
		report.Section(model.SectionExif).MarkUnavailable("corrupt IFD")

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteReport(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "(unavailable: corrupt IFD)") {
			t.Error("expected unavailable diagnostic")
		}
	})

	t.Run("writes results", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).WriteResults(createTestResults()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{
			"[OK]     /in/a.jpg -> /out/a_sanitized.jpg",
			"Pixel alteration: 12 pixels",
			"Diagnostic (mode_conversion): converted CMYK to RGB",
			"Steps: decode, reconstruct, perturb, encode",
			"[FAILED] /in/b.txt",
			"Error: " + model.ErrNotAnImage.Error(),
			"Succeeded: 1",
			"Failed:    1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).WriteReport(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result struct {
			Version string `json:"version"`
			Report  struct {
				Sections []struct {
					Name    string `json:"name"`
					Entries []struct {
						Tag          string `json:"tag"`
						SeverityText string `json:"severity_text"`
					} `json:"entries"`
				} `json:"sections"`
			} `json:"report"`
			Summary model.Summary `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if result.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", result.Version)
		}
		if len(result.Report.Sections) != 4 || result.Report.Sections[2].Name != "gps" {
			t.Fatalf("unexpected sections %+v", result.Report.Sections)
		}
		if result.Report.Sections[2].Entries[0].SeverityText != "CRITICAL" {
			t.Errorf("unexpected gps entry %+v", result.Report.Sections[2].Entries[0])
		}
		if result.Summary.CriticalCount != 1 || result.Summary.Clean {
			t.Errorf("unexpected summary %+v", result.Summary)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteReport(createTestReport()); err != nil {
			t.Fatal(err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact output to be a single line")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteReport(createTestReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"report\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("results carry counts and no raw error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteResults(createTestResults()); err != nil {
			t.Fatal(err)
		}

		var result struct {
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
			Results   []struct {
				State           string `json:"state"`
				Success         bool   `json:"success"`
				Error           string `json:"error"`
				PerturbedPixels int    `json:"perturbed_pixels"`
			} `json:"results"`
		}
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 1 || len(result.Results) != 2 {
			t.Fatalf("unexpected counts %+v", result)
		}
		if result.Results[0].State != "done" || result.Results[0].PerturbedPixels != 12 {
			t.Errorf("unexpected first result %+v", result.Results[0])
		}
		if result.Results[1].Error != model.ErrNotAnImage.Error() {
			t.Errorf("unexpected error text %q", result.Results[1].Error)
		}
	})

	t.Run("nil results encode as empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteResults(nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"results":[]`) {
			t.Errorf("unexpected output %s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteReport(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# metanull Inspection Report",
			"## Severity Summary",
			"```mermaid",
			"### gps",
			"GPSLatitude",
			"[!CAUTION]",
			"Report generated by [metanull]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("clean report has tip and no chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteReport(model.NewMetadataReport()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		if strings.Contains(output, "```mermaid") {
			t.Error("did not expect a chart for a clean report")
		}
		if !strings.Contains(output, "[!TIP]") || !strings.Contains(output, "No entries.") {
			t.Errorf("unexpected clean output:\n%s", output)
		}
	})

	t.Run("writes results table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteResults(createTestResults()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{"# metanull Sanitize Results", "`/in/a.jpg`", "mode_conversion", "[!WARNING]"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

// errWriter fails every write.
type errWriter struct{}

func (errWriter) WriteReport(*model.MetadataReport) (int, error) { return 0, errors.New("boom") }

func (errWriter) WriteResults([]*model.SanitizationResult) (int, error) {
	return 0, errors.New("boom")
}

// TestMultiWriter tests writing to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&buf1), NewJSONWriter(&buf2))

		n, err := mw.WriteReport(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}
		if buf1.Len() == 0 || buf2.Len() == 0 {
			t.Error("expected both writers to receive output")
		}

		if _, err := mw.WriteResults(createTestResults()); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(errWriter{}, NewSimpleWriter(&buf))
		if _, err := mw.WriteReport(createTestReport()); err == nil {
			t.Error("expected error")
		}
		if _, err := mw.WriteResults(nil); err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("second writer should not run")
		}
	})
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 2, "ab"},
		{"日本語テキスト", 5, "日本..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
