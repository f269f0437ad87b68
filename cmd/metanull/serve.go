package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	mlog "github.com/nao1215/metanull/internal/log"
	"github.com/nao1215/metanull/internal/mcpserver"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an MCP server on stdio",
		Long: `Serve exposes inspect and sanitize as Model Context Protocol tools over
stdin/stdout so that AI agents can clean images before sharing them.

Tools:
  inspect_image   list the metadata of an image
  sanitize_image  write a metadata-free copy of an image

The configuration file and --profile set the defaults used for arguments
a tool call leaves out. Logs go to stderr as JSON lines unless
--log-format text is given.

Example client configuration:
  {"command": "metanull", "args": ["serve"]}`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().Bool("history", false, "Record every sanitize call in the history database")
	cmd.Flags().String("log-format", "json", "Log format on stderr: json or text")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("history") {
		cfg.SaveToDB, _ = cmd.Flags().GetBool("history")
	}
	if err := cfg.SanitizationConfig().Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logFormat, _ := cmd.Flags().GetString("log-format")
	var logger *slog.Logger
	switch logFormat {
	case "json":
		logger = mlog.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	case "text":
		logger = setupLogger(cfg.Verbose)
	default:
		return fmt.Errorf("invalid log format %q: must be json or text", logFormat)
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	opts := []mcpserver.Option{
		mcpserver.WithDefaults(cfg.SanitizationConfig()),
		mcpserver.WithLogger(logger),
		mcpserver.WithVersion(getVersion()),
	}

	hdb, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if hdb != nil {
		defer hdb.Close()
		opts = append(opts, mcpserver.WithHistory(hdb))
	}

	logger.Info("serving MCP on stdio")
	return mcpserver.New(newEngine(cfg, logger), opts...).Serve(ctx)
}
