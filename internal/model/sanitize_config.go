package model

import "fmt"

const (
	// MinQuality is the lowest accepted encoder quality.
	MinQuality = 50

	// MaxQuality is the highest accepted encoder quality.
	MaxQuality = 100

	// DefaultQuality is the encoder quality used when none is given.
	DefaultQuality = 95
)

// SanitizationConfig holds the settings of a single sanitize invocation.
// It is passed by value and never mutated once the run has started.
type SanitizationConfig struct {
	// Format is the output container format.
	Format Format `json:"format" yaml:"format"`

	// Quality is the lossy encoder quality in [MinQuality, MaxQuality].
	// PNG ignores it, but it is still validated.
	Quality int `json:"quality" yaml:"quality"`

	// PerturbPixels enables the anti-forensic pixel alteration stage.
	PerturbPixels bool `json:"perturb_pixels" yaml:"perturbPixels"`

	// RandomizeTimestamp rewrites the output file times to a random
	// point in the past.
	RandomizeTimestamp bool `json:"randomize_timestamp" yaml:"randomizeTimestamp"`

	// Verify re-inspects the output after encoding and fails the run
	// if any metadata section is non-empty.
	Verify bool `json:"verify" yaml:"verify"`

	// ConvertMode requests an explicit pixel layout conversion before
	// encoding. Empty means the source layout is encoded as is and an
	// incompatible layout fails with ErrUnsupportedMode.
	ConvertMode ColorMode `json:"convert_mode,omitempty" yaml:"convertMode,omitempty"`
}

// DefaultSanitizationConfig returns the settings used when the caller
// does not override anything: JPEG at quality 95 with pixel alteration,
// timestamp randomization and output verification enabled.
func DefaultSanitizationConfig() SanitizationConfig {
	return SanitizationConfig{
		Format:             FormatJPEG,
		Quality:            DefaultQuality,
		PerturbPixels:      true,
		RandomizeTimestamp: true,
		Verify:             true,
	}
}

// Validate checks the configuration without touching the filesystem.
// Every returned error wraps ErrInvalidConfig.
func (c SanitizationConfig) Validate() error {
	if !c.Format.Encodable() {
		return fmt.Errorf("%w: output format %q is not supported (use JPEG, WEBP or PNG)", ErrInvalidConfig, c.Format)
	}
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("%w: quality %d is outside [%d,%d]", ErrInvalidConfig, c.Quality, MinQuality, MaxQuality)
	}
	switch c.ConvertMode {
	case "", ModeGray, ModeRGB, ModeRGBA:
	default:
		return fmt.Errorf("%w: cannot convert to mode %q", ErrInvalidConfig, c.ConvertMode)
	}
	return nil
}
