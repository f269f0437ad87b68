package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/metanull/internal/config"
)

// NewRootCmd creates the root command for metanull.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metanull",
		Short: "Strip every piece of metadata from images",
		Long: `metanull removes metadata from images by copying their pixels into a
freshly allocated buffer and encoding that buffer to a new file.

Nothing from the source container survives: no EXIF, no GPS coordinates,
no embedded thumbnails, no ICC profile, no XMP. Optionally a handful of
pixels are nudged by one intensity level and the output file times are
set to a random point in the past year.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current directory, XDG config or home)")
	cmd.PersistentFlags().StringP("profile", "P", "", "Profile to apply from the configuration file")
	cmd.PersistentFlags().String("data-dir", config.XDGDataDir(), "Directory of the history database")

	// Add subcommands
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewSanitizeCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
