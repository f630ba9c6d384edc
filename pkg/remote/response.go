package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helmcode/labs-ai/pkg/model"
)

var ErrMalformedResponse = errors.New("malformed analysis response")

// analyzeResponse covers both service generations: "analysis" is either the
// narrative text or an object with summary, findings and recommendations.
type analyzeResponse struct {
	Analysis        json.RawMessage            `json:"analysis"`
	Categorization  map[string]json.RawMessage `json:"categorization"`
	Recommendations []string                   `json:"recommendations"`
	RiskLevel       string                     `json:"risk_level"`
	AnalyzedAt      string                     `json:"analyzed_at"`
}

type structuredAnalysis struct {
	Summary         string   `json:"summary"`
	Analysis        string   `json:"analysis"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
	RiskLevel       string   `json:"risk_level"`
}

type categorizationEntry struct {
	Level    string `json:"level"`
	Status   string `json:"status"`
	Category string `json:"category"`
	Note     string `json:"note"`
	Message  string `json:"message"`
}

// timestamp layouts tried in order; the service may omit the zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseResponse(data []byte, now func() time.Time) (*model.RemoteAnalysis, error) {
	var resp analyzeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	raw := strings.TrimSpace(string(resp.Analysis))
	if raw == "" || raw == "null" {
		return nil, fmt.Errorf("%w: missing analysis", ErrMalformedResponse)
	}

	out := &model.RemoteAnalysis{Source: "service", RiskLevel: resp.RiskLevel}

	var text string
	var structured structuredAnalysis
	switch {
	case json.Unmarshal(resp.Analysis, &text) == nil:
		out.Narrative = strings.TrimSpace(text)
	case json.Unmarshal(resp.Analysis, &structured) == nil:
		out.Narrative = structured.narrative()
		out.Recommendations = append(out.Recommendations, structured.Recommendations...)
		if out.RiskLevel == "" {
			out.RiskLevel = structured.RiskLevel
		}
	default:
		return nil, fmt.Errorf("%w: analysis is neither text nor an object", ErrMalformedResponse)
	}
	out.Recommendations = append(out.Recommendations, resp.Recommendations...)

	if len(resp.Categorization) > 0 {
		out.Risks = make(map[string]model.Risk, len(resp.Categorization))
		for analyte, entry := range resp.Categorization {
			out.Risks[analyte] = parseRisk(entry)
		}
	}

	out.AnalyzedAt = parseTimestamp(resp.AnalyzedAt, now)
	return out, nil
}

func (s structuredAnalysis) narrative() string {
	var parts []string
	if s.Summary != "" {
		parts = append(parts, s.Summary)
	}
	if s.Analysis != "" {
		parts = append(parts, s.Analysis)
	}
	for _, f := range s.Findings {
		parts = append(parts, "- "+f)
	}
	return strings.Join(parts, "\n")
}

func parseRisk(raw json.RawMessage) model.Risk {
	var level string
	if err := json.Unmarshal(raw, &level); err == nil {
		return model.Risk{Level: model.ParseSeverity(strings.ToLower(level))}
	}

	var entry categorizationEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return model.Risk{Level: model.SeverityUnknown}
	}
	level = firstNonEmpty(entry.Level, entry.Status, entry.Category)
	return model.Risk{
		Level: model.ParseSeverity(strings.ToLower(level)),
		Note:  firstNonEmpty(entry.Note, entry.Message),
	}
}

func parseTimestamp(s string, now func() time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
