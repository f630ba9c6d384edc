package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Lookup(t *testing.T) {
	table := Default()

	tests := []struct {
		analyte string
		want    model.Range
		unit    string
		label   string
	}{
		{"glucose", model.Range{Min: 70, Max: 100}, "mg/dL", "Glucose"},
		{"hba1c", model.Range{Min: 4.0, Max: 5.6}, "%", "HbA1c"},
		{"ldl", model.Range{Min: 0, Max: 100}, "mg/dL", "LDL"},
		{"sodium", model.Range{Min: 135, Max: 145}, "mmol/L", "Sodium"},
		{"potassium", model.Range{Min: 3.5, Max: 5.0}, "mmol/L", "Potassium"},
	}

	for _, tt := range tests {
		t.Run(tt.analyte, func(t *testing.T) {
			r, ok := table.Lookup(tt.analyte)
			require.True(t, ok)
			assert.Equal(t, tt.want, r)
			assert.Equal(t, tt.unit, table.Unit(tt.analyte))
			assert.Equal(t, tt.label, table.Label(tt.analyte))
		})
	}
}

func TestDefault_UnknownAnalyte(t *testing.T) {
	table := Default()

	_, ok := table.Lookup("vitamin_d")
	assert.False(t, ok)
	assert.Equal(t, "", table.Unit("vitamin_d"))
	assert.Equal(t, "Vitamin_d", table.Label("vitamin_d"))
	assert.Len(t, table.Analytes(), 10)
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]Entry{{Analyte: "x", Min: ptr(5), Max: ptr(1)}})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New([]Entry{{Analyte: "x", Min: ptr(5)}})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New([]Entry{{Label: "nameless"}})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParse_OverridesAndExtends(t *testing.T) {
	data := []byte(`
analytes:
  - analyte: glucose
    label: Fasting glucose
    unit: mg/dL
    min: 65
    max: 99
  - analyte: vitamin_d
    label: Vitamin D
    unit: ng/mL
    min: 30
    max: 100
  - analyte: crp
    unit: mg/L
`)
	table, err := Parse(data)
	require.NoError(t, err)

	r, ok := table.Lookup("glucose")
	require.True(t, ok)
	assert.Equal(t, model.Range{Min: 65, Max: 99}, r)
	assert.Equal(t, "Fasting glucose", table.Label("glucose"))

	r, ok = table.Lookup("vitamin_d")
	require.True(t, ok)
	assert.Equal(t, 30.0, r.Min)

	_, ok = table.Lookup("crp")
	assert.False(t, ok)
	assert.Equal(t, "mg/L", table.Unit("crp"))

	assert.Len(t, table.Analytes(), 12)
}

func TestLoadFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "reference-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "ranges.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analytes:\n  - analyte: bun\n    min: 30\n    max: 10\n"), 0644))

	_, err = LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = LoadFile(filepath.Join(tmpDir, "missing.yaml"))
	assert.Error(t, err)
}
