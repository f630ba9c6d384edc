package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/server"
	"github.com/spf13/cobra"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lab dashboard API over HTTP",
		Long: `Expose the latest categorized panel, chart series, CSV export and the merged AI
analysis as a JSON API.

Endpoints:
  GET    /health
  GET    /api/labs/latest
  GET    /api/labs/series?analyte=glucose&window=6m
  GET    /api/labs/chart?analyte=glucose&window=6m
  GET    /api/labs/export?union=true
  GET    /api/labs/analysis
  POST   /api/labs/analysis
  DELETE /api/labs/analysis/error`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().String("backend", "", "Analysis backend (service, llm)")
	cmd.Flags().String("provider", "", "LLM provider (claude, openai)")
	cmd.Flags().String("model", "", "LLM model to use (overrides llm.model)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, withLLMFlags(map[string]string{
		"server.addr":      "addr",
		"analysis.backend": "backend",
	}))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var m *merger.Merger
	svc, target, err := a.analysisService()
	if err != nil {
		a.logger.WithError(err).Warn("Analysis backend unavailable, analysis endpoints disabled")
	} else {
		a.logger.WithField("backend", target).Info("Analysis backend configured")
		m = merger.New(svc, a.cfg.Analysis.Timeout, a.logger)
		defer m.Close()
	}

	srv := server.New(server.Options{
		Addr:   a.cfg.Server.Addr,
		Store:  st,
		Ranges: a.ranges,
		Merger: m,
		Export: labs.ExportOptions{
			Delimiter:    a.cfg.DelimiterRune(),
			UnionColumns: a.cfg.Export.Union,
		},
		Logger: a.logger,
	})

	printSuccess("Serving lab API on " + a.cfg.Server.Addr)
	return srv.Start(ctx)
}
