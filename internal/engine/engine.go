// Package engine exposes the two public operations of metanull: Inspect
// reports the metadata of an image, Sanitize writes a clean copy of it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/metanull/internal/codec"
	"github.com/nao1215/metanull/internal/metadata"
	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/pipeline"
	"github.com/nao1215/metanull/internal/pixel"
	"github.com/nao1215/metanull/internal/timestamp"
)

// SanitizedSuffix is appended to the input base name when no output path
// is given.
const SanitizedSuffix = "_sanitized"

// Engine runs inspections and sanitize pipelines. An Engine holds no
// per-call state and may be shared between goroutines.
type Engine struct {
	logger       *slog.Logger
	inspector    *metadata.Inspector
	randomizer   *timestamp.Randomizer
	newRand      func() *rand.Rand
	jpegBackend  codec.JPEGBackend
	perturbCount int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine and every step it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithInspector replaces the metadata inspector.
func WithInspector(i *metadata.Inspector) Option {
	return func(e *Engine) {
		e.inspector = i
	}
}

// WithTimestampRandomizer replaces the timestamp randomizer.
func WithTimestampRandomizer(r *timestamp.Randomizer) Option {
	return func(e *Engine) {
		e.randomizer = r
	}
}

// WithRandSource sets the factory of the random source used for pixel
// perturbation. It is called once per sanitize call.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(e *Engine) {
		e.newRand = fn
	}
}

// WithJPEGBackend selects the JPEG encoder.
func WithJPEGBackend(b codec.JPEGBackend) Option {
	return func(e *Engine) {
		e.jpegBackend = b
	}
}

// WithPerturbCount overrides how many pixels the perturbation visits.
func WithPerturbCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.perturbCount = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		newRand:      pixel.NewSecureRand,
		jpegBackend:  codec.JPEGBackendJpegli,
		perturbCount: pixel.DefaultPerturbCount,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.inspector == nil {
		e.inspector = metadata.NewInspector(metadata.WithLogger(e.logger))
	}
	if e.randomizer == nil {
		e.randomizer = timestamp.New(timestamp.WithLogger(e.logger))
	}
	return e
}

// Inspect reports the metadata of the image at path.
func (e *Engine) Inspect(path string) (*model.MetadataReport, error) {
	return e.inspector.Inspect(path)
}

// Sanitize writes a metadata-free copy of in to out.
//
// An empty out selects DefaultOutputPath. cfg is validated before any file
// is touched. The returned result is never nil: on failure Success is
// false, Err wraps one of the model sentinels, and no output file exists.
// A failed timestamp rewrite is only a diagnostic.
func (e *Engine) Sanitize(ctx context.Context, in, out string, cfg model.SanitizationConfig) *model.SanitizationResult {
	if out == "" {
		out = DefaultOutputPath(in, cfg.Format)
	}
	result := model.NewSanitizationResult(in, out, cfg)

	if err := e.precheck(in, out, cfg); err != nil {
		result.Fail(err)
		return result
	}

	_ = e.Pipeline(cfg).Execute(ctx, pipeline.NewRun(result)) //nolint:errcheck // recorded on result
	if result.Success {
		e.logger.Info("image sanitized",
			"input", in,
			"output", out,
			"format", cfg.Format,
			"diagnostics", len(result.Diagnostics),
		)
	}
	return result
}

// SanitizeBatch sanitizes every job with cfg using at most concurrency
// parallel runs. Jobs with an empty output get DefaultOutputPath. The
// returned error is non-nil only for an invalid cfg or a cancelled ctx.
func (e *Engine) SanitizeBatch(ctx context.Context, jobs []pipeline.Job, cfg model.SanitizationConfig, concurrency int) ([]*model.SanitizationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prepared := make([]pipeline.Job, len(jobs))
	for i, j := range jobs {
		if j.Output == "" {
			j.Output = DefaultOutputPath(j.Input, cfg.Format)
		}
		prepared[i] = j
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return e.Pipeline(cfg) },
		cfg,
		pipeline.WithConcurrency(concurrency),
		pipeline.WithBatchLogger(e.logger),
	)
	return bp.ProcessBatch(ctx, prepared)
}

// Pipeline builds the step sequence for cfg. Disabled options leave their
// step out, so the result's state machine skips the matching state.
func (e *Engine) Pipeline(cfg model.SanitizationConfig) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(e.logger))
	p.AddSteps(
		pipeline.NewDecodeStep(),
		pipeline.NewReconstructStep(e.logger),
	)
	if cfg.PerturbPixels {
		p.AddStep(pipeline.NewPerturbStep(e.newRand(),
			pipeline.WithPerturbCount(e.perturbCount),
			pipeline.WithPerturbLogger(e.logger),
		))
	}
	if cfg.ConvertMode != "" {
		p.AddStep(pipeline.NewConvertStep(cfg.ConvertMode, e.logger))
	}
	p.AddStep(pipeline.NewEncodeStep(
		pipeline.WithJPEGBackend(e.jpegBackend),
		pipeline.WithEncodeLogger(e.logger),
	))
	if cfg.RandomizeTimestamp {
		p.AddStep(pipeline.NewTimestampStep(e.randomizer, e.logger))
	}
	if cfg.Verify {
		p.AddStep(pipeline.NewVerifyStep(e.inspector))
	}
	e.logger.Debug("pipeline built", "steps", p.StepNames())
	return p
}

// precheck runs the checks that need no decoding.
func (e *Engine) precheck(in, out string, cfg model.SanitizationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	info, err := os.Stat(in)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", model.ErrNotFound, in)
		}
		return fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", model.ErrNotAnImage, in)
	}
	if sameFile(in, info, out) {
		// A failed run removes its output, which here is the input.
		return fmt.Errorf("%w: output %s is the input file", model.ErrInvalidConfig, out)
	}
	return nil
}

// sameFile reports whether out names the file in, by path or through a link.
func sameFile(in string, inInfo fs.FileInfo, out string) bool {
	absIn, errIn := filepath.Abs(in)
	absOut, errOut := filepath.Abs(out)
	if errIn == nil && errOut == nil && absIn == absOut {
		return true
	}
	outInfo, err := os.Stat(out)
	if err != nil {
		return false
	}
	return os.SameFile(inInfo, outInfo)
}

// DefaultOutputPath returns <dir>/<base>_sanitized.<ext> for in, where ext
// follows the output format.
func DefaultOutputPath(in string, format model.Format) string {
	dir := filepath.Dir(in)
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(dir, base+SanitizedSuffix+format.Extension())
}
