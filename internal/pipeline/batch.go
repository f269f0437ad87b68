package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/metanull/internal/model"
)

// DefaultConcurrency is the number of files sanitized at once when no
// limit is configured.
const DefaultConcurrency = 4

// Job names one input file and where its clean copy goes.
type Job struct {
	Input  string
	Output string
}

// BatchProcessor sanitizes many files concurrently.
// Each job gets its own pipeline from the factory, so steps that hold a
// random source or other per-run state are never shared.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	config          model.SanitizationConfig
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor that runs every job with
// cfg through a pipeline built by pipelineFactory.
func NewBatchProcessor(pipelineFactory func() *Pipeline, cfg model.SanitizationConfig, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		config:          cfg,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch sanitizes all jobs and returns one result per job, in job
// order. A failing job does not stop the others; its error is on its
// result. The returned error is non-nil only when ctx was cancelled, in
// which case jobs that never started are reported as failed with the
// context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*model.SanitizationResult, error) {
	results := make([]*model.SanitizationResult, len(jobs))
	err := bp.ProcessBatchWithCallback(ctx, jobs, func(result *model.SanitizationResult, index int) {
		results[index] = result
	})

	for i, r := range results {
		if r == nil {
			r = model.NewSanitizationResult(jobs[i].Input, jobs[i].Output, bp.config)
			r.Fail(ctx.Err())
			results[i] = r
		}
	}
	return results, err
}

// ProcessBatchWithCallback sanitizes all jobs and calls callback as each
// one finishes. The callback runs on the worker goroutine, so it must be
// safe for concurrent use; writing to distinct slice indexes is.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []Job,
	callback func(result *model.SanitizationResult, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_files", len(jobs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			result := model.NewSanitizationResult(job.Input, job.Output, bp.config)
			if err := bp.pipelineFactory().Execute(ctx, NewRun(result)); err != nil {
				bp.logger.Warn("sanitize failed",
					"input", job.Input,
					"error", err,
				)
			}

			callback(result, i)
			// Failures stay on the result so the other jobs keep running.
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_files", len(jobs),
		"elapsed", time.Since(startTime),
	)
	return err
}
