package cmd

import (
	"fmt"
	"os"

	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/helmcode/labs-ai/pkg/store"
	"github.com/spf13/cobra"
)

var importDelimiter string

func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import lab panels from a JSON or CSV file",
		Long: `Read panels from a JSON array of flat panel objects or from a CSV file in the
export format, and save them into the SQL store. A panel for a date that is
already stored replaces it.

CSV cells are split on export.delimiter from the config unless --delimiter
is given, so a file written by 'labs-ai export' reads back unchanged.

Examples:
  labs-ai import lab-results.csv
  labs-ai import lab-results.csv --delimiter ';'
  labs-ai import history.json --store postgres --dsn postgres://localhost/labs`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringVar(&importDelimiter, "delimiter", "", "CSV delimiter (default from config, ',')")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	a, err := newApp(cmd, map[string]string{"export.delimiter": "delimiter"})
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	history, err := store.ReadHistory(f, path, a.cfg.DelimiterRune())
	if err != nil {
		return err
	}
	if len(history) == 0 {
		printError(fmt.Sprintf("No panels found in %s", path))
		return nil
	}

	n, err := savePanels(cmd, a, history)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Imported %d panels from %s", n, path))
	return nil
}

func savePanels(cmd *cobra.Command, a *app, history model.History) (int, error) {
	ctx := cmd.Context()
	st, err := a.openStore(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	for i, panel := range history {
		if len(panel.Skipped) > 0 {
			a.logger.WithField("date", panel.Date.Format(model.DateLayout)).
				WithField("keys", panel.Skipped).
				Warn("Skipping unreadable values")
		}
		if err := st.SavePanel(ctx, panel); err != nil {
			return i, fmt.Errorf("failed to save panel %s: %w", panel.Date.Format(model.DateLayout), err)
		}
	}
	return len(history), nil
}
