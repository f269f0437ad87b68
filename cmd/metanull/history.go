package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [image]",
		Short: "Show recorded sanitize runs",
		Long: `History lists sanitize runs recorded with --history (or "history: true" in
the configuration file). Runs are stored by blake2b-256 digest: giving an
image lists the runs whose input or output has the same content.

The history never stores metadata values or altered pixel positions.

Examples:
  # Last 20 runs
  metanull history

  # Was this file produced by metanull, or sanitized before?
  metanull history holiday_sanitized.jpg

  # Failed runs of the last week as JSON
  metanull history --failed --since 168h --json

  # Delete runs older than 90 days
  metanull history --prune 2160h

  # One run in full, and the overall counts
  metanull history --show 3f2a9c1e-...
  metanull history --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to show (0 = all)")
	cmd.Flags().Bool("failed", false, "Show failed runs only")
	cmd.Flags().Duration("since", 0, "Show runs newer than this duration")
	cmd.Flags().Duration("prune", 0, "Delete runs older than this duration instead of listing")
	cmd.Flags().String("show", "", "Show every recorded field of one run by id")
	cmd.Flags().Bool("stats", false, "Show run counts instead of listing")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.HistoryPath()); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet.")
		return nil
	}

	hdb, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return err
	}
	defer hdb.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	prune, err := cmd.Flags().GetDuration("prune")
	if err != nil {
		return err
	}
	if prune > 0 {
		n, err := hdb.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d run(s).\n", n)
		return nil
	}

	if id, _ := cmd.Flags().GetString("show"); id != "" {
		rec, err := hdb.GetRun(ctx, id)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, rec)
		}
		return writeRunDetail(out, rec)
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		s, err := hdb.Stats(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, s)
		}
		fmt.Fprintf(out, "Total:     %d\nSucceeded: %d\nFailed:    %d\n", s.Total, s.Succeeded, s.Failed)
		return nil
	}

	var f database.Filter
	if f.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if f.FailedOnly, err = cmd.Flags().GetBool("failed"); err != nil {
		return err
	}
	since, err := cmd.Flags().GetDuration("since")
	if err != nil {
		return err
	}
	if since > 0 {
		f.Since = time.Now().Add(-since)
	}
	if len(args) == 1 {
		if f.Digest, err = database.FileDigest(args[0]); err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
	}

	runs, err := hdb.ListRuns(ctx, f)
	if err != nil {
		return err
	}

	if asJSON {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No matching runs.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		diag := "-"
		if len(r.Diagnostics) > 0 {
			diag = strings.Join(r.Diagnostics, ",")
		}
		rows[i] = []string{
			r.ID[:min(8, len(r.ID))],
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.InputPath,
			string(r.Format),
			strconv.Itoa(r.Quality),
			status,
			diag,
		}
	}

	md := markdown.NewMarkdown(out)
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Time", "Input", "Format", "Quality", "Status", "Diagnostics"},
		Rows:   rows,
	})
	return md.Build()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRunDetail writes one run as a two-column Markdown table.
func writeRunDetail(w io.Writer, r *database.RunRecord) error {
	status := "ok"
	if !r.Success {
		status = "failed: " + r.Error
	}
	convert := string(r.ConvertMode)
	if convert == "" {
		convert = "-"
	}

	md := markdown.NewMarkdown(w)
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Run", r.ID},
			{"Time", r.Timestamp.Local().Format(time.RFC3339)},
			{"Input", r.InputPath},
			{"Input digest", r.InputDigest},
			{"Output", r.OutputPath},
			{"Output digest", r.OutputDigest},
			{"Source mode", string(r.SourceMode)},
			{"Format", string(r.Format)},
			{"Quality", strconv.Itoa(r.Quality)},
			{"Perturb pixels", strconv.FormatBool(r.PerturbPixels)},
			{"Randomize timestamp", strconv.FormatBool(r.RandomizeTimestamp)},
			{"Verify", strconv.FormatBool(r.Verify)},
			{"Convert", convert},
			{"Status", status},
			{"Diagnostics", strings.Join(r.Diagnostics, ",")},
			{"Duration", r.Duration.String()},
		},
	})
	return md.Build()
}
