package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/nao1215/metanull/internal/codec"
	"github.com/nao1215/metanull/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "metanull"

	// DefaultFormat is the output container. JPEG is what most photo
	// sharing sites expect.
	DefaultFormat = model.FormatJPEG

	// DefaultQuality is the lossy encoder quality.
	DefaultQuality = model.DefaultQuality

	// DefaultJPEGBackend is the JPEG encoder used unless overridden.
	DefaultJPEGBackend = codec.JPEGBackendJpegli

	// DefaultConcurrency is the number of files sanitized at once by the
	// batch command.
	DefaultConcurrency = 4

	// DefaultHistoryFile is the SQLite file name under the data directory.
	DefaultHistoryFile = "history.db"
)

// Config holds all configuration options for metanull.
// It is populated from the config file and CLI flags, in that order, and
// passed down explicitly; there is no global settings state.
type Config struct {
	// Format is the output container format.
	Format model.Format

	// Quality is the lossy encoder quality in [50, 100].
	Quality int

	// PerturbPixels enables the pixel alteration stage.
	PerturbPixels bool

	// RandomizeTimestamp rewrites output file times.
	RandomizeTimestamp bool

	// Verify re-inspects every output before declaring success.
	Verify bool

	// ConvertMode requests an explicit pixel layout conversion.
	// Empty means an incompatible layout is an error.
	ConvertMode model.ColorMode

	// JPEGBackend selects the JPEG encoder.
	JPEGBackend codec.JPEGBackend

	// Concurrency is the number of parallel runs in batch mode.
	Concurrency int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile decides.
	ConfigFilePath string

	// Profile is the name of the profile to apply from the config file.
	Profile string

	// Profiles holds what was loaded from the config file, if any.
	Profiles *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// Inputs are the image files to process.
	Inputs []string

	// Output is the output path of a single-file sanitize.
	// Empty selects <base>_sanitized.<ext> next to the input.
	Output string

	// OutputDir is where batch outputs go. Empty writes each output next
	// to its input.
	OutputDir string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB records each sanitize run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Format:             DefaultFormat,
		Quality:            DefaultQuality,
		PerturbPixels:      true,
		RandomizeTimestamp: true,
		Verify:             true,
		JPEGBackend:        DefaultJPEGBackend,
		Concurrency:        DefaultConcurrency,
		DBDir:              XDGDataDir(),
	}
}

// SanitizationConfig returns the per-call settings of the engine.
func (c *Config) SanitizationConfig() model.SanitizationConfig {
	return model.SanitizationConfig{
		Format:             c.Format,
		Quality:            c.Quality,
		PerturbPixels:      c.PerturbPixels,
		RandomizeTimestamp: c.RandomizeTimestamp,
		Verify:             c.Verify,
		ConvertMode:        c.ConvertMode,
	}
}

// HistoryPath returns the path of the history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DBDir, DefaultHistoryFile)
}

// XDGDataDir returns the XDG data directory for metanull.
// On Linux: ~/.local/share/metanull
// On macOS: ~/Library/Application Support/metanull
// On Windows: %LOCALAPPDATA%\metanull
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for metanull.
// On Linux: ~/.config/metanull
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	if !c.Format.Encodable() {
		return ErrInvalidFormat
	}
	if c.Quality < model.MinQuality || c.Quality > model.MaxQuality {
		return ErrInvalidQuality
	}
	switch c.ConvertMode {
	case "", model.ModeGray, model.ModeRGB, model.ModeRGBA:
	default:
		return ErrInvalidConvertMode
	}
	if _, err := codec.ParseJPEGBackend(string(c.JPEGBackend)); err != nil {
		return ErrInvalidJPEGBackend
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Output != "" && len(c.Inputs) > 1 {
		return ErrOutputWithManyInputs
	}
	return nil
}
