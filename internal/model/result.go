package model

import (
	"errors"
	"time"
)

// State is the position of a sanitize run in its state machine:
//
//	Idle → Decoded → Reconstructed → [Perturbed] → Encoded → [TimestampRandomized] → Done
//
// Bracketed states are skipped when the corresponding option is disabled.
type State int

const (
	StateIdle State = iota
	StateDecoded
	StateReconstructed
	StatePerturbed
	StateEncoded
	StateTimestampRandomized
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoded:
		return "decoded"
	case StateReconstructed:
		return "reconstructed"
	case StatePerturbed:
		return "perturbed"
	case StateEncoded:
		return "encoded"
	case StateTimestampRandomized:
		return "timestamp_randomized"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DiagnosticKind classifies a non-fatal diagnostic.
type DiagnosticKind string

const (
	// DiagnosticTimestamp records a failed timestamp rewrite.
	DiagnosticTimestamp DiagnosticKind = "timestamp"

	// DiagnosticModeConversion records an explicit pixel layout conversion.
	DiagnosticModeConversion DiagnosticKind = "mode_conversion"

	// DiagnosticDepthReduction records a source with more than 8 bits per
	// channel that was reduced to 8 bits.
	DiagnosticDepthReduction DiagnosticKind = "depth_reduction"
)

// Diagnostic is a soft issue observed during a successful run.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`

	// Err is the underlying error, if any. Not serialized.
	Err error `json:"-"`
}

// SanitizationResult is the outcome of one sanitize call.
// A successful result always has an output file; a failed one never does.
type SanitizationResult struct {
	// InputPath is the file that was sanitized.
	InputPath string `json:"input_path"`

	// OutputPath is where the clean image was written. It is set even on
	// failure so callers can report the intended destination.
	OutputPath string `json:"output_path"`

	// Config is a copy of the settings the run used.
	Config SanitizationConfig `json:"config"`

	// State is the last state the run reached.
	State State `json:"state"`

	// Success is true when the output was fully written.
	Success bool `json:"success"`

	// Err is the fatal error for a failed run. Not serialized.
	Err error `json:"-"`

	// ErrorMessage is the text of Err.
	ErrorMessage string `json:"error,omitempty"`

	// Diagnostics holds soft issues, in the order they occurred.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// PixelAlteration is true when the perturbation stage ran.
	PixelAlteration bool `json:"pixel_alteration"`

	// PerturbedPixels is the number of coordinates visited by the
	// perturbation stage. The positions themselves are never recorded.
	PerturbedPixels int `json:"perturbed_pixels,omitempty"`

	// Timestamp is the access and modification time applied to the
	// output, zero when randomization was disabled or failed.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// SourceMode is the pixel layout of the decoded input.
	SourceMode ColorMode `json:"source_mode,omitempty"`

	// PerformedSteps lists the pipeline steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}

// NewSanitizationResult creates a result in the Idle state.
func NewSanitizationResult(input, output string, cfg SanitizationConfig) *SanitizationResult {
	return &SanitizationResult{
		InputPath:   input,
		OutputPath:  output,
		Config:      cfg,
		State:       StateIdle,
		Diagnostics: []Diagnostic{},
		StartedAt:   time.Now(),
	}
}

// Advance moves the run to the given state.
func (r *SanitizationResult) Advance(s State) {
	r.State = s
}

// Fail marks the run as failed with err.
func (r *SanitizationResult) Fail(err error) {
	r.Success = false
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// AddDiagnostic records a soft issue.
func (r *SanitizationResult) AddDiagnostic(kind DiagnosticKind, err error) {
	d := Diagnostic{Kind: kind, Err: err}
	if err != nil {
		d.Message = err.Error()
	}
	r.Diagnostics = append(r.Diagnostics, d)
}

// AddNote records a soft issue that has no underlying error.
func (r *SanitizationResult) AddNote(kind DiagnosticKind, message string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Kind: kind, Message: message})
}

// HasDiagnostic reports whether a diagnostic wrapping target was recorded.
func (r *SanitizationResult) HasDiagnostic(target error) bool {
	for _, d := range r.Diagnostics {
		if d.Err != nil && errors.Is(d.Err, target) {
			return true
		}
	}
	return false
}
