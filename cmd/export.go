package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/spf13/cobra"
)

var (
	exportOutFile   string
	exportUnion     bool
	exportDelimiter string
)

func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the lab history as delimited text",
		Long: `Write every panel as one row under a header of date plus the first panel's
analytes. A later panel with an analyte missing from the header is an error
unless --union widens the header to every analyte seen.

Examples:
  # Write lab-results.csv
  labs-ai export

  # Semicolon-separated to stdout
  labs-ai export --out - --delimiter ';'`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringVar(&exportOutFile, "out", labs.DefaultExportFilename, "Output file, or - for stdout")
	cmd.Flags().BoolVar(&exportUnion, "union", false, "Use the union of all analytes as columns")
	cmd.Flags().StringVar(&exportDelimiter, "delimiter", "", "Field delimiter (default from config, ',')")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, map[string]string{
		"export.union":     "union",
		"export.delimiter": "delimiter",
	})
	if err != nil {
		return err
	}

	history, err := a.loadHistory(cmd.Context())
	if err != nil {
		return err
	}

	exporter := labs.NewExporter(labs.ExportOptions{
		Delimiter:    a.cfg.DelimiterRune(),
		UnionColumns: a.cfg.Export.Union,
	})

	// Nothing is written unless the whole export serializes.
	text, err := exporter.Serialize(history)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if exportOutFile == "-" {
		_, err = io.WriteString(os.Stdout, text)
		return err
	}
	if err := os.WriteFile(exportOutFile, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutFile, err)
	}
	printSuccess(fmt.Sprintf("Exported %d panels to %s", len(history), exportOutFile))
	return nil
}
