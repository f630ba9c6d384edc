package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/helmcode/labs-ai/pkg/formatter"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/spf13/cobra"
)

var (
	analyzeOutputFormat string
	analyzeBackend      string
	analyzeURL          string
	analyzeTimeout      time.Duration
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Get an AI narrative for the most recent lab panel",
		Long: `Show the categorized latest panel right away, then request a narrative analysis
from the lab analysis service or directly from an LLM provider.

Examples:
  # Use the analysis service from the config file
  labs-ai analyze

  # Point at another analysis service
  labs-ai analyze --url http://labs.internal:8000

  # Ask an LLM directly
  labs-ai analyze --backend llm --provider openai --model gpt-4o`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzeOutputFormat, "output", "o", "human", "Output format (human, json, yaml)")
	cmd.Flags().StringVar(&analyzeBackend, "backend", "", "Analysis backend (service, llm)")
	cmd.Flags().StringVar(&analyzeURL, "url", "", "Analysis service base URL")
	cmd.Flags().String("provider", "", "LLM provider (claude, openai). Defaults to llm.provider, then LLM_PROVIDER")
	cmd.Flags().String("model", "", "LLM model to use (overrides llm.model)")
	cmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "Analysis timeout (default from config, 30s)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if !formatter.ValidFormat(analyzeOutputFormat) {
		return fmt.Errorf("unsupported output format: %s", analyzeOutputFormat)
	}
	human := analyzeOutputFormat == formatter.FormatHuman

	a, err := newApp(cmd, withLLMFlags(map[string]string{
		"analysis.backend": "backend",
		"analysis.url":     "url",
		"analysis.timeout": "timeout",
	}))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	history, err := a.loadHistory(ctx)
	if err != nil {
		return err
	}
	latest, ok := history.Latest()
	if !ok {
		return fmt.Errorf("no lab results recorded; run 'labs-ai import' or 'labs-ai seed' first")
	}

	svc, target, err := a.analysisService()
	if err != nil {
		return err
	}

	out := formatter.New(os.Stdout, analyzeOutputFormat)
	if human {
		printAnalyzeHeader(latest.Date.Format(model.DateLayout), target)
		if err := out.Latest(formatter.NewLatestView(history, labs.NewCategorizer(a.ranges))); err != nil {
			return err
		}
	}

	m := merger.New(svc, a.cfg.Analysis.Timeout, a.logger)
	defer m.Close()

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Analyzing with AI..."
	if human {
		s.Start()
	}

	outcome := <-m.Request(ctx, latest)
	s.Stop()

	if outcome.Err != nil {
		if human {
			if errors.Is(outcome.Err, merger.ErrTimeout) {
				printError(fmt.Sprintf("Analysis timed out after %s", a.cfg.Analysis.Timeout))
			} else {
				printError("Analysis failed")
			}
		} else if err := out.Analysis(m.Snapshot()); err != nil {
			return err
		}
		return outcome.Err
	}

	if human {
		printSuccess("Analysis complete")
	}
	return out.Analysis(m.Snapshot())
}

func printAnalyzeHeader(date, target string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	cyan.Println("🩺 Lab Results AI Analysis")
	fmt.Printf("📅 Panel: %s\n", date)
	fmt.Printf("🔗 Backend: %s\n", target)
}
