package main

import (
	"fmt"
	"os"

	"github.com/helmcode/labs-ai/cmd"
	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labs-ai",
		Short: "Lab results categorization and trends with AI analysis",
		Long: `labs-ai classifies blood panel values against reference ranges, charts
analytes over time, exports the history and merges AI-written narrative
analyses of the latest panel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		cmd.NewLatestCmd(),
		cmd.NewAnalyzeCmd(),
		cmd.NewTrendCmd(),
		cmd.NewExportCmd(),
		cmd.NewImportCmd(),
		cmd.NewSeedCmd(),
		cmd.NewServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("labs-ai version %s\n", version)
		},
	}
}
