package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helmcode/labs-ai/pkg/model"
)

type promptRow struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
}

// BuildLabPrompt asks for a narrative reading of one panel. The locally
// computed categorization goes in alongside the raw values so the model
// reasons from the same reference ranges the dashboard shows.
func BuildLabPrompt(panel model.Panel, categorized []model.CategorizedResult) (string, error) {
	rows := make(map[string]promptRow, len(categorized))
	for _, r := range categorized {
		rows[r.Analyte] = promptRow{
			Value:     r.Value,
			Unit:      r.Unit,
			Reference: r.Reference,
			Status:    string(r.Severity),
		}
	}

	resultsJSON, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal lab results: %w", err)
	}

	skipped := ""
	if len(panel.Skipped) > 0 {
		skipped = fmt.Sprintf("\nValues that could not be read: %s\n", strings.Join(panel.Skipped, ", "))
	}

	return fmt.Sprintf(`You are a clinical laboratory specialist reviewing a patient's blood panel.

Visit date: %s
%s
Lab results with reference ranges and local status:
%s

Please provide:
1. A short plain-language summary of the panel
2. A risk assessment for every analyte that needs attention
3. Practical, non-prescriptive recommendations

Respond in JSON format with this structure:
{
  "narrative": "plain-language summary of the results",
  "risk_level": "low|medium|high",
  "risks": {
    "analyte_name": {
      "level": "normal|slightly_critical|critical",
      "note": "why this value matters"
    }
  },
  "recommendations": ["short actionable recommendation"]
}

Use the analyte names exactly as given. Do not diagnose; suggest consulting a physician where appropriate.`,
		panel.Date.Format(model.DateLayout), skipped, string(resultsJSON)), nil
}
