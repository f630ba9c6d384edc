package model

import "time"

// Severity is the tier an analyte value falls into against its reference range.
type Severity string

const (
	SeverityNormal           Severity = "normal"
	SeveritySlightlyCritical Severity = "slightly_critical"
	SeverityCritical         Severity = "critical"
	SeverityUnknown          Severity = "unknown"
)

// Rank orders the classified tiers. Unknown sits outside the ordering and ranks -1.
func (s Severity) Rank() int {
	switch s {
	case SeverityNormal:
		return 0
	case SeveritySlightlyCritical:
		return 1
	case SeverityCritical:
		return 2
	default:
		return -1
	}
}

// ParseSeverity maps loose level strings (as returned by analysis services) onto a Severity.
func ParseSeverity(level string) Severity {
	switch level {
	case "normal", "low":
		return SeverityNormal
	case "slightly_critical", "slightly critical", "borderline", "moderate", "medium", "elevated":
		return SeveritySlightlyCritical
	case "critical", "high", "severe":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

type CategorizedResult struct {
	Analyte   string   `json:"analyte" yaml:"analyte"`
	Label     string   `json:"label" yaml:"label"`
	Value     float64  `json:"value" yaml:"value"`
	Unit      string   `json:"unit" yaml:"unit"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Reference string   `json:"reference" yaml:"reference"`
}

type StatusDistribution struct {
	Normal           int `json:"normal" yaml:"normal"`
	SlightlyCritical int `json:"slightly_critical" yaml:"slightly_critical"`
	Critical         int `json:"critical" yaml:"critical"`
	Unknown          int `json:"unknown" yaml:"unknown"`
}

func (d StatusDistribution) Total() int {
	return d.Normal + d.SlightlyCritical + d.Critical + d.Unknown
}

// ChartPoint is one panel's contribution to an analyte series. Value is nil
// when the analyte was not recorded in that panel.
type ChartPoint struct {
	Date         string   `json:"date" yaml:"date"`
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	Value        *float64 `json:"value" yaml:"value"`
	ReferenceMin float64  `json:"reference_min" yaml:"reference_min"`
	ReferenceMax float64  `json:"reference_max" yaml:"reference_max"`
	HasReference bool     `json:"has_reference" yaml:"has_reference"`
}

type SeriesSummary struct {
	Analyte string  `json:"analyte" yaml:"analyte"`
	Points  int     `json:"points" yaml:"points"`
	Average float64 `json:"average" yaml:"average"`
	Peak    float64 `json:"peak" yaml:"peak"`
	Minimum float64 `json:"minimum" yaml:"minimum"`
	Current float64 `json:"current" yaml:"current"`
	Trend   string  `json:"trend" yaml:"trend"` // "increasing", "decreasing", "stable"
}

type Risk struct {
	Level Severity `json:"level" yaml:"level"`
	Note  string   `json:"note,omitempty" yaml:"note,omitempty"`
}

// RemoteAnalysis is the narrative plus risk tags returned for one panel.
type RemoteAnalysis struct {
	RequestID       string          `json:"request_id" yaml:"request_id"`
	Narrative       string          `json:"narrative" yaml:"narrative"`
	Risks           map[string]Risk `json:"risks,omitempty" yaml:"risks,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	RiskLevel       string          `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	AnalyzedAt      time.Time       `json:"analyzed_at" yaml:"analyzed_at"`
	Source          string          `json:"source" yaml:"source"`
}

// Clone returns a deep copy so callers can't mutate a shared result.
func (a *RemoteAnalysis) Clone() *RemoteAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	if a.Risks != nil {
		out.Risks = make(map[string]Risk, len(a.Risks))
		for k, v := range a.Risks {
			out.Risks[k] = v
		}
	}
	if a.Recommendations != nil {
		out.Recommendations = append([]string(nil), a.Recommendations...)
	}
	return &out
}
