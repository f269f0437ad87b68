package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/config"
	"github.com/nao1215/metanull/internal/database"
	"github.com/nao1215/metanull/internal/engine"
	mlog "github.com/nao1215/metanull/internal/log"
	"github.com/nao1215/metanull/internal/report"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// stringFlag returns a string flag, or "" when the command does not have it.
// Persistent flags of the root are only visible when the command is
// attached to it.
func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// loadConfig builds a Config from defaults, the configuration file, the
// selected profile and finally the command-line flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = stringFlag(cmd, "config")
	cfg.Profile = stringFlag(cmd, "profile")
	if dir := stringFlag(cmd, "data-dir"); dir != "" {
		cfg.DBDir = dir
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Profiles = cf
	case explicitConfigPath:
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	case cfg.Profile != "":
		return nil, fmt.Errorf("%w: %q (no configuration file found)", config.ErrUnknownProfile, cfg.Profile)
	}

	if cfg.Profiles != nil {
		p, err := cfg.Profiles.Profile(cfg.Profile)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(p); err != nil {
			return nil, fmt.Errorf("configuration error in %s: %w", configPath, err)
		}
	}

	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Inputs = args
	return cfg, nil
}

// addReportFlags registers the report output flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write report to specified file path (creates directories if needed)")
}

func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Lookup("json") == nil {
		return nil
	}

	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return err
	}
	return nil
}

// setupLogger creates the structured logger. Logs go to stderr so that
// reports on stdout stay machine readable.
func setupLogger(verbose bool) *slog.Logger {
	return mlog.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// newEngine creates an Engine configured from cfg.
func newEngine(cfg *config.Config, logger *slog.Logger) *engine.Engine {
	return engine.New(
		engine.WithLogger(logger),
		engine.WithJPEGBackend(cfg.JPEGBackend),
	)
}

// openHistory opens the history database when it is enabled.
// It returns nil when history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	hdb, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	logger.Debug("history database opened", "path", hdb.Path())
	return hdb, nil
}

// reportOutput returns the destination of the report and a close function.
func reportOutput(cmd *cobra.Command, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list what metadata an image carries, including locations,
	// so they are only readable by the owner.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the requested report format.
// With --verbose and --report-file, the text report is also shown on
// stdout.
func newReportWriter(cmd *cobra.Command, cfg *config.Config, w io.Writer, simpleOpts ...report.SimpleWriterOption) report.Writer {
	simpleOpts = append([]report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}, simpleOpts...)

	var primary report.Writer
	switch {
	case cfg.JSONReport:
		primary = report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		primary = report.NewMarkdownWriter(w)
	default:
		primary = report.NewSimpleWriter(w, simpleOpts...)
	}

	if cfg.ReportFile != "" && cfg.Verbose {
		return report.NewMultiWriter(primary, report.NewSimpleWriter(cmd.OutOrStdout(), simpleOpts...))
	}
	return primary
}
