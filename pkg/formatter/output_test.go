package formatter

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/helmcode/labs-ai/pkg/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func init() {
	color.NoColor = true
}

func latestView() LatestView {
	return LatestView{
		Date: "2025-12-01",
		Results: []model.CategorizedResult{
			{Analyte: "glucose", Label: "Glucose", Value: 135, Unit: "mg/dL", Severity: model.SeverityCritical, Reference: "70-100"},
			{Analyte: "hdl", Label: "HDL", Value: 36, Unit: "mg/dL", Severity: model.SeveritySlightlyCritical, Reference: "40-60"},
			{Analyte: "ferritin", Label: "Ferritin", Value: 80, Severity: model.SeverityUnknown, Reference: "N/A"},
		},
		Distribution: model.StatusDistribution{SlightlyCritical: 1, Critical: 1, Unknown: 1},
	}
}

func TestPrinter_LatestHuman(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatHuman).Latest(latestView()))

	out := buf.String()
	assert.Contains(t, out, "LAB RESULTS (2025-12-01)")
	assert.Contains(t, out, "🔴 Glucose")
	assert.Contains(t, out, "135 mg/dL")
	assert.Contains(t, out, "slightly critical")
	assert.Contains(t, out, "ref N/A")
	assert.Contains(t, out, "critical: 1")
	assert.Contains(t, out, "unknown: 1")
}

func TestPrinter_LatestEncoded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatJSON).Latest(latestView()))

	var decoded LatestView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, latestView(), decoded)

	buf.Reset()
	require.NoError(t, New(&buf, FormatYAML).Latest(latestView()))
	var fromYAML LatestView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, latestView(), fromYAML)
}

func TestPrinter_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := New(&buf, "xml").Latest(latestView())
	assert.EqualError(t, err, "unsupported output format: xml")
	assert.False(t, ValidFormat("xml"))
	assert.True(t, ValidFormat(FormatYAML))
}

func TestPrinter_SeriesHuman(t *testing.T) {
	v1, v3 := 82.0, 91.5
	view := SeriesView{
		Analyte: "glucose",
		Label:   "Glucose",
		Unit:    "mg/dL",
		Window:  "6m",
		Points: []model.ChartPoint{
			{Date: "Jan 25", Timestamp: "2025-01-01", Value: &v1, ReferenceMin: 70, ReferenceMax: 100, HasReference: true},
			{Date: "Feb 25", Timestamp: "2025-02-01", ReferenceMin: 70, ReferenceMax: 100, HasReference: true},
			{Date: "Mar 25", Timestamp: "2025-03-01", Value: &v3, ReferenceMin: 70, ReferenceMax: 100, HasReference: true},
		},
		Summary: model.SeriesSummary{Analyte: "glucose", Points: 2, Average: 86.75, Peak: 91.5, Minimum: 82, Current: 91.5, Trend: "increasing"},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, "").Series(view))

	out := buf.String()
	assert.Contains(t, out, "Glucose (mg/dL), 6m")
	assert.Contains(t, out, "2025-02-01  n/a")
	assert.Contains(t, out, "ref 70-100")
	assert.Contains(t, out, "Average: 86.75")
	assert.Contains(t, out, "Trend: ↗ increasing")
}

func TestPrinter_SeriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatHuman).Series(SeriesView{Label: "LDL", Window: "3m"}))
	assert.Contains(t, buf.String(), "No lab results in this window")
}

func TestPrinter_AnalysisHuman(t *testing.T) {
	snap := merger.Snapshot{
		Seq: 2,
		Result: &model.RemoteAnalysis{
			Narrative:       "Glucose is high.",
			RiskLevel:       "high",
			Risks:           map[string]model.Risk{"ldl": {Level: model.SeverityNormal}, "glucose": {Level: model.SeverityCritical, Note: "fasting"}},
			Recommendations: []string{"Retest in 3 months"},
			AnalyzedAt:      time.Date(2025, 12, 2, 9, 30, 0, 0, time.UTC),
			Source:          "service",
		},
		LastError: &merger.Failure{Seq: 2, Message: "remote analysis timed out"},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatHuman).Analysis(snap))

	out := buf.String()
	assert.Contains(t, out, "✗ ANALYSIS FAILED: remote analysis timed out")
	assert.Contains(t, out, "Showing the previous analysis")
	assert.Contains(t, out, "Glucose is high.")
	assert.Contains(t, out, "OVERALL RISK: HIGH")
	assert.Contains(t, out, "🔴 glucose: critical (fasting)")
	assert.Contains(t, out, "1. Retest in 3 months")
	assert.Contains(t, out, "source service, analyzed 2025-12-02 09:30")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("glucose:")), bytes.Index(buf.Bytes(), []byte("ldl:")))
}

func TestPrinter_AnalysisNone(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatHuman).Analysis(merger.Snapshot{}))
	assert.Contains(t, buf.String(), "No analysis available")

	buf.Reset()
	require.NoError(t, New(&buf, FormatJSON).Analysis(merger.Snapshot{Pending: true, Seq: 1}))
	assert.JSONEq(t, `{"seq": 1, "pending": true}`, buf.String())
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 12, "  ")
	assert.Equal(t, "  one two\n  three four", got)
}

func TestNewLatestView(t *testing.T) {
	categorizer := labs.NewCategorizer(reference.Default())

	empty := NewLatestView(nil, categorizer)
	assert.Empty(t, empty.Date)
	assert.NotNil(t, empty.Results)

	history := model.History{
		model.NewPanel(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), model.Measurement{Analyte: "glucose", Value: 90}),
		model.NewPanel(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			model.Measurement{Analyte: "glucose", Value: 125},
			model.Measurement{Analyte: "ldl", Value: 95},
		),
	}
	view := NewLatestView(history, categorizer)
	assert.Equal(t, "2025-02-01", view.Date)
	require.Len(t, view.Results, 2)
	assert.Equal(t, model.SeveritySlightlyCritical, view.Results[0].Severity)
	assert.Equal(t, model.StatusDistribution{Normal: 1, SlightlyCritical: 1}, view.Distribution)
}

func TestNewSeriesView(t *testing.T) {
	history := model.History{
		model.NewPanel(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), model.Measurement{Analyte: "glucose", Value: 90}),
		model.NewPanel(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), model.Measurement{Analyte: "glucose", Value: 100}),
		model.NewPanel(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), model.Measurement{Analyte: "ldl", Value: 100}),
	}

	view := NewSeriesView(history, labs.ThreeMonths, "glucose", reference.Default())
	assert.Equal(t, "Glucose", view.Label)
	assert.Equal(t, "mg/dL", view.Unit)
	assert.Equal(t, "3m", view.Window)
	require.Len(t, view.Points, 2)
	assert.Equal(t, "May 25", view.Points[0].Date)
	assert.Nil(t, view.Points[1].Value)
	assert.Equal(t, 1, view.Summary.Points)
}
