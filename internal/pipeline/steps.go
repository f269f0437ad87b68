package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/nao1215/metanull/internal/codec"
	"github.com/nao1215/metanull/internal/metadata"
	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/pixel"
	"github.com/nao1215/metanull/internal/timestamp"
)

// OutputFileMode is the permission of committed output files.
const OutputFileMode fs.FileMode = 0o644

// DecodeStep reads the input file and decodes its pixels.
// The container bytes are dropped as soon as decoding finishes, so no
// metadata block survives past this step.
type DecodeStep struct{}

// NewDecodeStep creates a new decoding step.
func NewDecodeStep() *DecodeStep {
	return &DecodeStep{}
}

// Name returns the step name.
func (s *DecodeStep) Name() string {
	return "decode"
}

// Do executes the decode step.
func (s *DecodeStep) Do(_ context.Context, run *Run) error {
	data, err := os.ReadFile(run.Result.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", model.ErrNotFound, run.Result.InputPath)
		}
		return fmt.Errorf("%w: %w", model.ErrDecode, err)
	}

	img, format, err := codec.Decode(data)
	if err != nil {
		return err
	}

	run.Image = img
	run.Format = format
	run.Result.Advance(model.StateDecoded)
	return nil
}

// ReconstructStep copies the decoded pixels into a fresh buffer.
type ReconstructStep struct {
	logger *slog.Logger
}

// NewReconstructStep creates a new reconstruction step.
func NewReconstructStep(logger *slog.Logger) *ReconstructStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconstructStep{logger: logger}
}

// Name returns the step name.
func (s *ReconstructStep) Name() string {
	return "reconstruct"
}

// Do executes the reconstruct step.
func (s *ReconstructStep) Do(_ context.Context, run *Run) error {
	if run.Image == nil {
		return fmt.Errorf("%w: nothing was decoded", model.ErrDecode)
	}

	if pixel.HasDeepSamples(run.Image) {
		run.Result.AddNote(model.DiagnosticDepthReduction, "16-bit samples were reduced to 8 bits")
	}

	run.Handle = pixel.Rebuild(run.Image)
	run.Image = nil
	run.Result.SourceMode = run.Handle.Mode()
	run.Result.Advance(model.StateReconstructed)

	s.logger.Debug("pixels reconstructed",
		"mode", run.Handle.Mode(),
		"width", run.Handle.Width(),
		"height", run.Handle.Height(),
	)
	return nil
}

// PerturbStep nudges a handful of random pixels by one intensity level.
type PerturbStep struct {
	count  int
	rng    *rand.Rand
	logger *slog.Logger
}

// PerturbStepOption configures a PerturbStep.
type PerturbStepOption func(*PerturbStep)

// WithPerturbCount sets how many coordinates are visited.
func WithPerturbCount(n int) PerturbStepOption {
	return func(s *PerturbStep) {
		if n > 0 {
			s.count = n
		}
	}
}

// WithPerturbLogger sets a custom logger for the perturb step.
func WithPerturbLogger(logger *slog.Logger) PerturbStepOption {
	return func(s *PerturbStep) {
		s.logger = logger
	}
}

// NewPerturbStep creates a new perturbation step drawing from rng.
// rng must not be shared with another goroutine.
func NewPerturbStep(rng *rand.Rand, opts ...PerturbStepOption) *PerturbStep {
	s := &PerturbStep{
		count:  pixel.DefaultPerturbCount,
		rng:    rng,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = pixel.NewSecureRand()
	}
	return s
}

// Name returns the step name.
func (s *PerturbStep) Name() string {
	return "perturb"
}

// Do executes the perturb step.
func (s *PerturbStep) Do(_ context.Context, run *Run) error {
	if run.Handle == nil {
		return fmt.Errorf("%w: no pixel buffer", model.ErrEncode)
	}

	n := pixel.Perturb(run.Handle, s.count, s.rng)
	run.Result.PixelAlteration = true
	run.Result.PerturbedPixels = n
	run.Result.Advance(model.StatePerturbed)

	s.logger.Info("pixel alteration applied", "pixels", n)
	return nil
}

// ConvertStep changes the pixel layout when the caller asked for it.
type ConvertStep struct {
	target model.ColorMode
	logger *slog.Logger
}

// NewConvertStep creates a conversion step towards target.
func NewConvertStep(target model.ColorMode, logger *slog.Logger) *ConvertStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConvertStep{target: target, logger: logger}
}

// Name returns the step name.
func (s *ConvertStep) Name() string {
	return "convert"
}

// Do executes the convert step. A handle already in the target layout is
// left untouched and no diagnostic is recorded.
func (s *ConvertStep) Do(_ context.Context, run *Run) error {
	if run.Handle == nil {
		return fmt.Errorf("%w: no pixel buffer", model.ErrEncode)
	}
	from := run.Handle.Mode()
	if from == s.target {
		return nil
	}

	converted, err := pixel.Convert(run.Handle, s.target)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrEncode, err)
	}
	run.Handle = converted
	run.Result.AddNote(model.DiagnosticModeConversion,
		fmt.Sprintf("converted %s to %s", from, s.target))

	s.logger.Info("pixel layout converted", "from", from, "to", s.target)
	return nil
}

// EncodeStep serializes the handle and commits it to the output path.
type EncodeStep struct {
	backend codec.JPEGBackend
	logger  *slog.Logger
}

// EncodeStepOption configures an EncodeStep.
type EncodeStepOption func(*EncodeStep)

// WithJPEGBackend selects the JPEG encoder implementation.
func WithJPEGBackend(b codec.JPEGBackend) EncodeStepOption {
	return func(s *EncodeStep) {
		s.backend = b
	}
}

// WithEncodeLogger sets a custom logger for the encode step.
func WithEncodeLogger(logger *slog.Logger) EncodeStepOption {
	return func(s *EncodeStep) {
		s.logger = logger
	}
}

// NewEncodeStep creates a new encoding step.
func NewEncodeStep(opts ...EncodeStepOption) *EncodeStep {
	s := &EncodeStep{
		backend: codec.JPEGBackendJpegli,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *EncodeStep) Name() string {
	return "encode"
}

// Do executes the encode step. The whole container is produced in memory
// first; nothing is written if encoding fails.
func (s *EncodeStep) Do(_ context.Context, run *Run) error {
	if run.Handle == nil {
		return fmt.Errorf("%w: no pixel buffer", model.ErrEncode)
	}
	cfg := run.Config()

	var buf bytes.Buffer
	if err := codec.Encode(&buf, run.Handle, codec.EncodeOptions{
		Format:      cfg.Format,
		Quality:     cfg.Quality,
		JPEGBackend: s.backend,
	}); err != nil {
		return err
	}
	run.Handle = nil
	run.Encoded = buf.Bytes()

	if err := writeFileAtomic(run.Result.OutputPath, run.Encoded, OutputFileMode); err != nil {
		return fmt.Errorf("%w: %w", model.ErrEncode, err)
	}
	run.outputWritten = true
	run.Result.Advance(model.StateEncoded)

	s.logger.Debug("output written",
		"output", run.Result.OutputPath,
		"format", cfg.Format,
		"bytes", len(run.Encoded),
	)
	run.Encoded = nil
	return nil
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it into place. The temporary file never outlives a failure.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".metanull-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// TimestampStep rewrites the output file times to a random past instant.
// A failure here is recorded as a diagnostic and does not fail the run.
type TimestampStep struct {
	randomizer *timestamp.Randomizer
	logger     *slog.Logger
}

// NewTimestampStep creates a new timestamp step.
func NewTimestampStep(r *timestamp.Randomizer, logger *slog.Logger) *TimestampStep {
	if r == nil {
		r = timestamp.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TimestampStep{randomizer: r, logger: logger}
}

// Name returns the step name.
func (s *TimestampStep) Name() string {
	return "timestamp"
}

// Do executes the timestamp step.
func (s *TimestampStep) Do(_ context.Context, run *Run) error {
	t, err := s.randomizer.Randomize(run.Result.OutputPath)
	if err != nil {
		s.logger.Warn("timestamp randomization failed",
			"output", run.Result.OutputPath,
			"error", err,
		)
		run.Result.AddDiagnostic(model.DiagnosticTimestamp, err)
		return nil
	}
	run.Result.Timestamp = t
	run.Result.Advance(model.StateTimestampRandomized)
	return nil
}

// VerifyStep re-inspects the committed output and fails the run if any
// metadata section is populated or unreadable.
type VerifyStep struct {
	inspector *metadata.Inspector
}

// NewVerifyStep creates a new verification step.
func NewVerifyStep(inspector *metadata.Inspector) *VerifyStep {
	if inspector == nil {
		inspector = metadata.NewInspector()
	}
	return &VerifyStep{inspector: inspector}
}

// Name returns the step name.
func (s *VerifyStep) Name() string {
	return "verify"
}

// Do executes the verify step.
func (s *VerifyStep) Do(_ context.Context, run *Run) error {
	report, err := s.inspector.Inspect(run.Result.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: output cannot be re-read: %w", model.ErrEncode, err)
	}
	if !report.IsClean() {
		return fmt.Errorf("%w: sections %v", model.ErrResidualMetadata, report.DirtySections())
	}
	return nil
}
