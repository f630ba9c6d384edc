package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/helmcode/labs-ai/pkg/analyzer"
	"github.com/helmcode/labs-ai/pkg/config"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/logging"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/helmcode/labs-ai/pkg/reference"
	"github.com/helmcode/labs-ai/pkg/remote"
	"github.com/helmcode/labs-ai/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var configPath string

// AddGlobalFlags registers the flags every subcommand understands.
func AddGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config file (default: ./labs-ai.yaml, ~/.config/labs-ai/labs-ai.yaml)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("store", "", "Store driver (sqlite, postgres, file)")
	pf.String("dsn", "", "Store DSN: sqlite path or postgres connection string")
	pf.String("history-file", "", "History file for the file store (JSON or CSV)")
}

// app is what a command needs once configuration is resolved.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	ranges *reference.Table
}

// newApp loads configuration with the command's flags bound over it. extra
// maps further config keys to command-local flag names.
func newApp(cmd *cobra.Command, extra map[string]string) (*app, error) {
	flags := map[string]*pflag.Flag{
		"log.level":    cmd.Flags().Lookup("log-level"),
		"store.driver": cmd.Flags().Lookup("store"),
		"store.dsn":    cmd.Flags().Lookup("dsn"),
		"store.file":   cmd.Flags().Lookup("history-file"),
	}
	for key, name := range extra {
		flags[key] = cmd.Flags().Lookup(name)
	}

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ranges := reference.Default()
	if cfg.Reference.File != "" {
		ranges, err = reference.LoadFile(cfg.Reference.File)
		if err != nil {
			return nil, err
		}
		logger.WithField("file", cfg.Reference.File).Debug("Loaded reference range overrides")
	}

	return &app{cfg: cfg, logger: logger, ranges: ranges}, nil
}

// withLLMFlags adds the --provider and --model bindings shared by the
// commands that can talk to an LLM.
func withLLMFlags(extra map[string]string) map[string]string {
	extra["llm.provider"] = "provider"
	extra["llm.model"] = "model"
	return extra
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:    store.Driver(a.cfg.Store.Driver),
		DSN:       a.cfg.Store.DSN,
		File:      a.cfg.Store.File,
		Delimiter: a.cfg.DelimiterRune(),
	}, a.logger)
}

// loadHistory opens the configured store, reads the history and closes it.
func (a *app) loadHistory(ctx context.Context) (model.History, error) {
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	history, err := st.PanelHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lab history: %w", err)
	}
	a.logger.WithField("panels", len(history)).Debug("Loaded lab history")
	return history, nil
}

// analysisService builds the configured backend: the external lab analysis
// service, or an LLM provider queried directly.
func (a *app) analysisService() (merger.Service, string, error) {
	switch a.cfg.Analysis.Backend {
	case "llm":
		svc, err := analyzer.NewFromEnv(a.cfg.LLM.Provider, a.cfg.LLM.Model, labs.NewCategorizer(a.ranges))
		if err != nil {
			return nil, "", err
		}
		return svc, fmt.Sprintf("LLM (%s)", svc.Model()), nil
	default:
		client, err := remote.NewClient(remote.Config{
			BaseURL:        a.cfg.Analysis.URL,
			Timeout:        a.cfg.Analysis.Timeout,
			RateLimit:      a.cfg.Analysis.RateLimit,
			CacheSize:      a.cfg.Analysis.CacheSize,
			CacheTTL:       a.cfg.Analysis.CacheTTL,
			BreakerTimeout: a.cfg.Analysis.BreakerTimeout,
		}, a.logger)
		if err != nil {
			return nil, "", err
		}
		return client, client.URL(), nil
	}
}

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(color.Error, "✓ %s\n", msg)
}

func printError(msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(color.Error, "✗ %s\n", msg)
}
