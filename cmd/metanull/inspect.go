package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/report"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <image>...",
		Short: "List the metadata an image carries",
		Long: `Inspect reads one or more images and lists their metadata in four sections:

  device    camera make, model, software, owner and serial numbers
  exif      capture settings and dates
  gps       location tags
  embedded  thumbnails, ICC profiles, XMP, IPTC, comments (sizes only)

Every tag is graded by how much it reveals, from INFO to CRITICAL.
A section that cannot be parsed is reported as unavailable.

Examples:
  # Inspect a photo
  metanull inspect holiday.jpg

  # Inspect several files and write a Markdown report
  metanull inspect -m -r report.md *.jpg

  # JSON for scripts
  metanull inspect --json holiday.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspectCmd,
	}

	addReportFlags(cmd)
	cmd.Flags().Bool("show-empty", false, "Show sections without entries in the text report")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	showEmpty, err := cmd.Flags().GetBool("show-empty")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	e := newEngine(cfg, logger)

	output, closeOutput, err := reportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeOutput() }()

	writer := newReportWriter(cmd, cfg, output, report.WithShowEmpty(showEmpty))

	failed := 0
	for _, path := range cfg.Inputs {
		rep, err := e.Inspect(path)
		if err != nil {
			logger.Debug("inspect failed", "path", path, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Inspect error for %s: %v\n", path, err)
			failed++
			continue
		}
		if _, err := writer.WriteReport(rep); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be inspected", failed, len(cfg.Inputs))
	}
	return nil
}
