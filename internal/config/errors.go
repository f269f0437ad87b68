package config

import (
	"errors"
	"fmt"

	"github.com/nao1215/metanull/internal/model"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Profile().
// The ones that describe sanitize settings wrap model.ErrInvalidConfig so
// that they classify the same way as errors from the engine.
var (
	// ErrNoInput is returned when no image path is given.
	ErrNoInput = errors.New("no input specified: provide at least one image path")

	// ErrInvalidFormat is returned when the output format cannot be written.
	ErrInvalidFormat = fmt.Errorf("%w: output format must be jpeg, webp or png", model.ErrInvalidConfig)

	// ErrInvalidQuality is returned when quality is outside [50, 100].
	ErrInvalidQuality = fmt.Errorf("%w: quality must be between %d and %d",
		model.ErrInvalidConfig, model.MinQuality, model.MaxQuality)

	// ErrInvalidConvertMode is returned for a conversion target other
	// than l, rgb or rgba.
	ErrInvalidConvertMode = fmt.Errorf("%w: convert mode must be l, rgb or rgba", model.ErrInvalidConfig)

	// ErrInvalidJPEGBackend is returned for an unknown JPEG encoder name.
	ErrInvalidJPEGBackend = errors.New("invalid jpeg backend: must be jpegli or std")

	// ErrInvalidConcurrency is returned when the batch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrOutputWithManyInputs is returned when --output is combined with
	// more than one input; use --output-dir instead.
	ErrOutputWithManyInputs = errors.New("--output accepts a single input; use --output-dir for several")

	// ErrUnknownProfile is returned when the requested profile is not in
	// the config file.
	ErrUnknownProfile = errors.New("unknown profile")
)
