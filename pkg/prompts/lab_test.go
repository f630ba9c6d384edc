package prompts

import (
	"testing"
	"time"

	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLabPrompt(t *testing.T) {
	panel := model.NewPanel(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		model.Measurement{Analyte: "glucose", Value: 130})
	panel.Skipped = []string{"ferritin"}

	categorized := []model.CategorizedResult{{
		Analyte:   "glucose",
		Label:     "Glucose",
		Value:     130,
		Unit:      "mg/dL",
		Reference: "70-100",
		Severity:  model.SeverityCritical,
	}}

	prompt, err := BuildLabPrompt(panel, categorized)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Visit date: 2025-03-01")
	assert.Contains(t, prompt, `"glucose": {`)
	assert.Contains(t, prompt, `"reference": "70-100"`)
	assert.Contains(t, prompt, `"status": "critical"`)
	assert.Contains(t, prompt, "Values that could not be read: ferritin")
	assert.Contains(t, prompt, `"recommendations"`)
}
