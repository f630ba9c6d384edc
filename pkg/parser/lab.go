package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/helmcode/labs-ai/pkg/model"
)

var fenceRe = regexp.MustCompile("```[a-zA-Z]*\n|```")

type riskEntry struct {
	Level string `json:"level"`
	Note  string `json:"note"`
}

type labResponse struct {
	Narrative       string               `json:"narrative"`
	RiskLevel       string               `json:"risk_level"`
	Risks           map[string]riskEntry `json:"risks"`
	Recommendations []string             `json:"recommendations"`
}

// ParseLabResponse maps an LLM reply onto a RemoteAnalysis. A reply that is
// not the requested JSON is kept whole as the narrative.
func ParseLabResponse(raw string) *model.RemoteAnalysis {
	cleaned := stripFences(raw)

	var resp labResponse
	if err := json.Unmarshal([]byte(extractObject(cleaned)), &resp); err != nil || resp.Narrative == "" {
		return &model.RemoteAnalysis{Narrative: strings.TrimSpace(raw)}
	}

	out := &model.RemoteAnalysis{
		Narrative:       strings.TrimSpace(resp.Narrative),
		RiskLevel:       strings.ToLower(resp.RiskLevel),
		Recommendations: resp.Recommendations,
	}
	if len(resp.Risks) > 0 {
		out.Risks = make(map[string]model.Risk, len(resp.Risks))
		for analyte, r := range resp.Risks {
			out.Risks[analyte] = model.Risk{
				Level: model.ParseSeverity(strings.ToLower(strings.TrimSpace(r.Level))),
				Note:  r.Note,
			}
		}
	}
	return out
}

// stripFences removes markdown code fences such as ```json ... ``` so JSON can be parsed
func stripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// extractObject trims prose around the outermost JSON object.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
