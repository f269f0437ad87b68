package pipeline

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/pixel"
)

// Run carries the state of one sanitize invocation from step to step.
// Each buffer is owned by exactly one step at a time; a step that hands
// data on clears what it no longer needs.
type Run struct {
	// Result accumulates the outcome and is returned to the caller.
	Result *model.SanitizationResult

	// Image is the decoded source, released after reconstruction.
	Image image.Image

	// Format is the detected source container.
	Format model.Format

	// Handle is the reconstructed pixel buffer.
	Handle *pixel.Handle

	// Encoded is the output container, released after it is committed.
	Encoded []byte

	// outputWritten is set once the output file exists on disk.
	outputWritten bool
}

// NewRun creates the state for a sanitize call whose outcome is recorded
// in result.
func NewRun(result *model.SanitizationResult) *Run {
	return &Run{Result: result}
}

// Config returns the settings of the run.
func (r *Run) Config() model.SanitizationConfig {
	return r.Result.Config
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run state left by
// the previous one.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded on the result as diagnostics and return nil.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked between steps only; a step that has started
// runs to completion. The first failing step stops the run: the error is
// recorded on the result and any output already written is removed, so
// a failed run never leaves a file behind. When every step succeeds the
// result reaches StateDone with Success set.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	result := run.Result
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			p.fail(run, ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"input", result.InputPath,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"input", result.InputPath,
				"error", err,
			)
			p.fail(run, err)
			return err
		}

		result.PerformedSteps = append(result.PerformedSteps, step.Name())
	}

	result.Advance(model.StateDone)
	result.Success = true
	return nil
}

// fail records err and removes a partially committed output.
func (p *Pipeline) fail(run *Run, err error) {
	run.Result.Fail(err)
	run.Handle = nil
	run.Encoded = nil
	if !run.outputWritten {
		return
	}
	if rmErr := os.Remove(run.Result.OutputPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		p.logger.Error("failed to remove output of failed run",
			"output", run.Result.OutputPath,
			"error", rmErr,
		)
		return
	}
	run.outputWritten = false
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
