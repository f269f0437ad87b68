package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/config"
	"github.com/nao1215/metanull/internal/engine"
	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/pipeline"
	"github.com/nao1215/metanull/internal/report"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <image>...",
		Short: "Sanitize many images concurrently",
		Long: `Batch sanitizes several images with the same settings. Each file is an
independent run: a failure on one file does not stop the others.

Outputs are named <name>_sanitized.<ext> and written next to each input,
or into --output-dir when given.

Examples:
  # Sanitize a folder into clean/
  metanull batch -d clean/ photos/*.jpg

  # WebP at quality 75 with eight workers
  metanull batch -f webp -q 75 -n 8 -d clean/ photos/*`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatchCmd,
	}

	addSanitizeFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().StringP("output-dir", "d", "", "Directory for the outputs (default: next to each input)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency, "Number of files sanitized at once")

	return cmd
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := applySanitizeFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.OutputDir, err = cmd.Flags().GetString("output-dir"); err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger := setupLogger(cfg.Verbose)
	ctx, cancel := signalContext(logger)
	defer cancel()

	hdb, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if hdb != nil {
		defer hdb.Close()
	}

	jobs := batchJobs(cfg.Inputs, cfg.OutputDir, cfg.Format)
	logger.Info("starting batch", "files", len(jobs), "concurrency", cfg.Concurrency)

	results, batchErr := newEngine(cfg, logger).SanitizeBatch(ctx, jobs, cfg.SanitizationConfig(), cfg.Concurrency)
	for _, r := range results {
		recordRun(ctx, hdb, r, logger)
	}

	if err := writeResults(cmd, cfg, results); err != nil {
		return err
	}
	if batchErr != nil {
		return batchErr
	}

	if _, failed := report.Tally(results); failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be sanitized", failed, len(results))
	}
	return nil
}

// batchJobs pairs every input with its output path.
// Inputs that share a base name in different directories would collide in
// outputDir, so later ones get a numeric suffix.
func batchJobs(inputs []string, outputDir string, format model.Format) []pipeline.Job {
	jobs := make([]pipeline.Job, len(inputs))
	seen := make(map[string]int)

	for i, in := range inputs {
		out := engine.DefaultOutputPath(in, format)
		if outputDir != "" {
			out = filepath.Join(outputDir, filepath.Base(out))
			if n := seen[out]; n > 0 {
				ext := filepath.Ext(out)
				seen[out]++
				out = fmt.Sprintf("%s_%d%s", out[:len(out)-len(ext)], n, ext)
			} else {
				seen[out] = 1
			}
		}
		jobs[i] = pipeline.Job{Input: in, Output: out}
	}
	return jobs
}
