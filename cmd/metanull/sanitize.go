package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/codec"
	"github.com/nao1215/metanull/internal/config"
	"github.com/nao1215/metanull/internal/database"
	"github.com/nao1215/metanull/internal/model"
)

// NewSanitizeCmd creates the sanitize command.
func NewSanitizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanitize <image>",
		Short: "Write a metadata-free copy of an image",
		Long: `Sanitize decodes an image, copies its pixels into a fresh buffer and encodes
that buffer to a new file. No metadata from the source container can reach
the output.

By default the output is a JPEG at quality 95 named <name>_sanitized.jpg
next to the input, a few pixels are nudged by one intensity level, the file
times are randomized and the output is re-inspected before success is
reported.

Examples:
  # Sanitize with defaults
  metanull sanitize holiday.jpg

  # Lossless PNG without pixel alteration
  metanull sanitize -f png --no-perturb -o clean.png holiday.jpg

  # CMYK input written as RGB JPEG
  metanull sanitize --convert rgb scan.tiff

  # Apply the "share" profile from the configuration file
  metanull sanitize -P share holiday.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runSanitizeCmd,
	}

	addSanitizeFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output file path (default: <name>_sanitized.<ext> next to the input)")

	return cmd
}

// addSanitizeFlags registers the flags shared by sanitize and batch.
func addSanitizeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "jpeg", "Output format: jpeg, webp or png")
	cmd.Flags().IntP("quality", "q", config.DefaultQuality,
		fmt.Sprintf("Encoder quality (%d-%d)", model.MinQuality, model.MaxQuality))
	cmd.Flags().Bool("no-perturb", false, "Do not alter any pixel")
	cmd.Flags().Bool("no-timestamp", false, "Keep the current time as the output file time")
	cmd.Flags().Bool("no-verify", false, "Skip re-inspection of the output")
	cmd.Flags().String("convert", "", "Convert pixels before encoding: l, rgb or rgba")
	cmd.Flags().String("jpeg-backend", string(config.DefaultJPEGBackend), "JPEG encoder: jpegli or std")
	cmd.Flags().Bool("history", false, "Record the run in the history database")
}

// applySanitizeFlags copies explicitly set flags onto cfg. Flags that were
// not given leave the configuration file value in place.
func applySanitizeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("format") {
		v, _ := flags.GetString("format")
		f, err := model.ParseFormat(v)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidFormat, err)
		}
		cfg.Format = f
	}
	if flags.Changed("quality") {
		cfg.Quality, _ = flags.GetInt("quality")
	}
	if flags.Changed("no-perturb") {
		v, _ := flags.GetBool("no-perturb")
		cfg.PerturbPixels = !v
	}
	if flags.Changed("no-timestamp") {
		v, _ := flags.GetBool("no-timestamp")
		cfg.RandomizeTimestamp = !v
	}
	if flags.Changed("no-verify") {
		v, _ := flags.GetBool("no-verify")
		cfg.Verify = !v
	}
	if flags.Changed("convert") {
		v, _ := flags.GetString("convert")
		m, err := model.ParseColorMode(v)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidConvertMode, err)
		}
		cfg.ConvertMode = m
	}
	if flags.Changed("jpeg-backend") {
		v, _ := flags.GetString("jpeg-backend")
		b, err := codec.ParseJPEGBackend(v)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidJPEGBackend, err)
		}
		cfg.JPEGBackend = b
	}
	if flags.Changed("history") {
		cfg.SaveToDB, _ = flags.GetBool("history")
	}
	return nil
}

// runSanitizeCmd executes the sanitize command.
func runSanitizeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := applySanitizeFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
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

	result := newEngine(cfg, logger).Sanitize(ctx, cfg.Inputs[0], cfg.Output, cfg.SanitizationConfig())
	recordRun(ctx, hdb, result, logger)
	if result.HasDiagnostic(model.ErrTimestamp) {
		logger.Warn("output keeps its current file time", "output", result.OutputPath)
	}

	if err := writeResults(cmd, cfg, []*model.SanitizationResult{result}); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("sanitize failed: %w", result.Err)
	}
	return nil
}

// recordRun saves result in the history database if one is open.
// A history failure is logged and never fails the command.
func recordRun(ctx context.Context, hdb *database.HistoryDB, result *model.SanitizationResult, logger *slog.Logger) {
	if hdb == nil {
		return
	}
	rec, err := hdb.RecordResult(ctx, result)
	if err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}
	logger.Debug("run recorded", "id", rec.ID)
}

// writeResults writes sanitize results in the requested report format.
func writeResults(cmd *cobra.Command, cfg *config.Config, results []*model.SanitizationResult) error {
	output, closeOutput, err := reportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeOutput() }()

	if _, err := newReportWriter(cmd, cfg, output).WriteResults(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
