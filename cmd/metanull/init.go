package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/config"
)

//go:embed templates/metanull.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + config.DefaultConfigFile + " with sanitize defaults and profiles",
		Long: `Write a commented YAML file that sets the defaults every sanitize and
batch run starts from, plus named profiles you can switch to with --profile.

The file holds:
- defaults: output format, quality, pixel perturbation, timestamp
  randomization, verification and history recording
- profiles: "share" (WebP for messaging) and "archive" (lossless PNG,
  pixels left untouched), each overriding only the keys it names

metanull reads the first file it finds: --config, then ./` + config.DefaultConfigFile + `,
then config.yaml in the user config directory, then ~/` + config.DefaultConfigFile + `.
Command-line flags always win over the file.

Examples:
  # Start a per-project config in the current directory
  metanull init

  # Install it as the user-wide config
  metanull init -o ~/.config/metanull/config.yaml

  # Replace an existing file with fresh defaults
  metanull init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Where to write the configuration file")
	cmd.Flags().BoolP("force", "f", false,
		"Replace the file if it already exists")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/metanull.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nSanitize with a profile from it:")
	fmt.Fprintln(out, "  metanull sanitize --profile share photo.jpg")
	fmt.Fprintln(out, "  metanull batch --profile archive *.jpg")

	return nil
}
