package cmd

import (
	"fmt"
	"os"

	"github.com/helmcode/labs-ai/pkg/formatter"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/spf13/cobra"
)

var latestOutputFormat string

func NewLatestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Categorize the most recent lab panel",
		Long: `Classify every analyte of the most recent panel against its reference range
and show how many fall into each status.

Examples:
  # Show the latest panel
  labs-ai latest

  # Machine-readable output
  labs-ai latest -o json`,
		Args: cobra.NoArgs,
		RunE: runLatest,
	}

	cmd.Flags().StringVarP(&latestOutputFormat, "output", "o", "human", "Output format (human, json, yaml)")
	return cmd
}

func runLatest(cmd *cobra.Command, args []string) error {
	if !formatter.ValidFormat(latestOutputFormat) {
		return fmt.Errorf("unsupported output format: %s", latestOutputFormat)
	}

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}

	history, err := a.loadHistory(cmd.Context())
	if err != nil {
		return err
	}

	view := formatter.NewLatestView(history, labs.NewCategorizer(a.ranges))
	return formatter.New(os.Stdout, latestOutputFormat).Latest(view)
}
