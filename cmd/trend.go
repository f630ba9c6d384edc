package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/helmcode/labs-ai/pkg/chart"
	"github.com/helmcode/labs-ai/pkg/formatter"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/spf13/cobra"
)

const formatHTML = "html"

var (
	trendWindow       string
	trendOutputFormat string
	trendOutFile      string
)

func NewTrendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trend ANALYTE",
		Short: "Show one analyte over time",
		Long: `Build the chart series for one analyte over a time window, with its reference
range and a trend summary.

Windows: all, calendar spans anchored on the latest panel (3m, 6m, 1y) or panel
counts (last:5, 5).

Examples:
  # Glucose over the last six months
  labs-ai trend glucose --window 6m

  # LDL as an HTML line chart
  labs-ai trend ldl -o html --out ldl.html`,
		Args: cobra.ExactArgs(1),
		RunE: runTrend,
	}

	cmd.Flags().StringVarP(&trendWindow, "window", "w", "all", "Time window (all, 3m, 6m, 1y, last:N)")
	cmd.Flags().StringVarP(&trendOutputFormat, "output", "o", "human", "Output format (human, json, yaml, html)")
	cmd.Flags().StringVar(&trendOutFile, "out", "", "Write output to this file instead of stdout")

	return cmd
}

func runTrend(cmd *cobra.Command, args []string) error {
	analyte := strings.ToLower(strings.TrimSpace(args[0]))

	if trendOutputFormat != formatHTML && !formatter.ValidFormat(trendOutputFormat) {
		return fmt.Errorf("unsupported output format: %s", trendOutputFormat)
	}
	window, err := labs.ParseWindow(trendWindow)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}

	history, err := a.loadHistory(cmd.Context())
	if err != nil {
		return err
	}
	if _, known := a.ranges.Lookup(analyte); !known {
		a.logger.WithField("analyte", analyte).Warn("No reference range for analyte")
	}

	view := formatter.NewSeriesView(history, window, analyte, a.ranges)

	var w io.Writer = os.Stdout
	if trendOutFile != "" {
		f, err := os.Create(trendOutFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", trendOutFile, err)
		}
		defer f.Close()
		w = f
	}

	if trendOutputFormat == formatHTML {
		if err := chart.Render(w, chart.Series{Title: view.Label, Unit: view.Unit, Points: view.Points}); err != nil {
			return fmt.Errorf("failed to render chart: %w", err)
		}
	} else if err := formatter.New(w, trendOutputFormat).Series(view); err != nil {
		return err
	}

	if trendOutFile != "" {
		printSuccess(fmt.Sprintf("Wrote %d points to %s", len(view.Points), trendOutFile))
	}
	return nil
}
