package reference

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/helmcode/labs-ai/pkg/model"
	"gopkg.in/yaml.v3"
)

var ErrInvalidRange = errors.New("invalid reference range")

// Entry describes one analyte. Min and Max are both nil when the analyte has
// a unit and label but no clinical range.
type Entry struct {
	Analyte string   `yaml:"analyte"`
	Label   string   `yaml:"label"`
	Unit    string   `yaml:"unit"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
}

// Table is an immutable analyte lookup. Build it once and pass it to whatever needs it.
type Table struct {
	entries map[string]Entry
	order   []string
}

func ptr(f float64) *float64 {
	return &f
}

// Default returns the built-in adult reference table.
func Default() *Table {
	t, err := New(defaultEntries())
	if err != nil {
		panic(err) // built-in table is static
	}
	return t
}

func defaultEntries() []Entry {
	return []Entry{
		{Analyte: "glucose", Label: "Glucose", Unit: "mg/dL", Min: ptr(70), Max: ptr(100)},
		{Analyte: "hba1c", Label: "HbA1c", Unit: "%", Min: ptr(4.0), Max: ptr(5.6)},
		{Analyte: "cholesterol", Label: "Cholesterol", Unit: "mg/dL", Min: ptr(125), Max: ptr(200)},
		{Analyte: "ldl", Label: "LDL", Unit: "mg/dL", Min: ptr(0), Max: ptr(100)},
		{Analyte: "hdl", Label: "HDL", Unit: "mg/dL", Min: ptr(40), Max: ptr(60)},
		{Analyte: "triglycerides", Label: "Triglycerides", Unit: "mg/dL", Min: ptr(0), Max: ptr(150)},
		{Analyte: "creatinine", Label: "Creatinine", Unit: "mg/dL", Min: ptr(0.6), Max: ptr(1.2)},
		{Analyte: "bun", Label: "BUN", Unit: "mg/dL", Min: ptr(7), Max: ptr(20)},
		{Analyte: "sodium", Label: "Sodium", Unit: "mmol/L", Min: ptr(135), Max: ptr(145)},
		{Analyte: "potassium", Label: "Potassium", Unit: "mmol/L", Min: ptr(3.5), Max: ptr(5.0)},
	}
}

// New builds a table from entries. Later entries for the same analyte replace earlier ones.
func New(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := t.put(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) put(e Entry) error {
	e.Analyte = strings.TrimSpace(e.Analyte)
	if e.Analyte == "" {
		return fmt.Errorf("%w: entry without analyte", ErrInvalidRange)
	}
	if (e.Min == nil) != (e.Max == nil) {
		return fmt.Errorf("%w: %s needs both min and max", ErrInvalidRange, e.Analyte)
	}
	if e.Min != nil && *e.Min > *e.Max {
		return fmt.Errorf("%w: %s min %v exceeds max %v", ErrInvalidRange, e.Analyte, *e.Min, *e.Max)
	}
	if _, exists := t.entries[e.Analyte]; !exists {
		t.order = append(t.order, e.Analyte)
	}
	t.entries[e.Analyte] = e
	return nil
}

// Lookup returns the range for an analyte. ok is false for analytes without one.
func (t *Table) Lookup(analyte string) (model.Range, bool) {
	e, ok := t.entries[analyte]
	if !ok || e.Min == nil {
		return model.Range{}, false
	}
	return model.Range{Min: *e.Min, Max: *e.Max}, true
}

func (t *Table) Unit(analyte string) string {
	return t.entries[analyte].Unit
}

// Label returns the display name, falling back to the capitalized identifier.
func (t *Table) Label(analyte string) string {
	if e, ok := t.entries[analyte]; ok && e.Label != "" {
		return e.Label
	}
	if analyte == "" {
		return ""
	}
	return strings.ToUpper(analyte[:1]) + analyte[1:]
}

// Analytes lists known analytes in definition order.
func (t *Table) Analytes() []string {
	return append([]string(nil), t.order...)
}

type fileFormat struct {
	Analytes []Entry `yaml:"analytes"`
}

// LoadFile returns the default table extended and overridden by the entries in a YAML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reference file: %w", err)
	}
	return New(append(defaultEntries(), f.Analytes...))
}
