package labs

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/helmcode/labs-ai/pkg/model"
)

// DefaultExportFilename is the suggested download name for an export.
const DefaultExportFilename = "lab-results.csv"

type ExportOptions struct {
	Delimiter rune
	// UnionColumns widens the header to every analyte seen in any panel,
	// in first-seen order, instead of failing on a panel with extra analytes.
	UnionColumns bool
}

type Exporter struct {
	opts ExportOptions
}

func NewExporter(opts ExportOptions) *Exporter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Exporter{opts: opts}
}

// Columns returns the analyte columns, not including the leading date column.
func (e *Exporter) Columns(history model.History) ([]string, error) {
	if len(history) == 0 {
		return nil, ErrEmptyExport
	}

	columns := history[0].Analytes()
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}

	for _, p := range history[1:] {
		for _, a := range p.Analytes() {
			if seen[a] {
				continue
			}
			if !e.opts.UnionColumns {
				return nil, fmt.Errorf("%w: panel %s has %q", ErrSchemaMismatch, p.Date.Format(model.DateLayout), a)
			}
			seen[a] = true
			columns = append(columns, a)
		}
	}
	return columns, nil
}

// Write emits a header row followed by one row per panel. Each cell is looked
// up by column name; an analyte missing from a panel leaves its cell empty.
func (e *Exporter) Write(w io.Writer, history model.History) error {
	columns, err := e.Columns(history)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = e.opts.Delimiter

	if err := cw.Write(append([]string{"date"}, columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range history {
		row := make([]string, 0, len(columns)+1)
		row = append(row, p.Date.Format(model.DateLayout))
		for _, c := range columns {
			if v, ok := p.Value(c); ok {
				row = append(row, FormatNumber(v))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Exporter) Serialize(history model.History) (string, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, history); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseCSV reads the export format back into a history. Columns are matched
// by header name; empty cells are treated as not recorded and non-numeric
// cells are recorded in the panel's Skipped list.
func ParseCSV(r io.Reader, delimiter rune) (model.History, error) {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.History{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol := -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if strings.EqualFold(header[i], "date") {
			dateCol = i
		}
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("%w: header is %q", ErrMissingDate, strings.Join(header, string(cr.Comma)))
	}

	history := model.History{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateCol >= len(record) {
			return nil, fmt.Errorf("line %d: missing date", line)
		}

		date, err := model.ParseDate(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		panel := model.Panel{Date: date}
		for i, cell := range record {
			if i == dateCol || i >= len(header) {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				panel.Skipped = append(panel.Skipped, header[i])
				continue
			}
			panel.Set(header[i], v)
		}
		history = append(history, panel)
	}
	return history, nil
}
