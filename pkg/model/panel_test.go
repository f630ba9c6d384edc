package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanel_UnmarshalJSON_PreservesOrder(t *testing.T) {
	var p Panel
	err := json.Unmarshal([]byte(`{"date":"2025-03-01","potassium":4.2,"glucose":92,"hba1c":5.4}`), &p)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), p.Date)
	assert.Equal(t, []string{"potassium", "glucose", "hba1c"}, p.Analytes())

	v, ok := p.Value("glucose")
	assert.True(t, ok)
	assert.Equal(t, 92.0, v)
}

func TestPanel_UnmarshalJSON_SkipsNonNumeric(t *testing.T) {
	var p Panel
	err := json.Unmarshal([]byte(`{"date":"2025-03-01","glucose":"95.5","note":"fasting","ldl":null,"hdl":{"x":1}}`), &p)
	require.NoError(t, err)

	assert.Equal(t, []string{"glucose"}, p.Analytes())
	v, _ := p.Value("glucose")
	assert.Equal(t, 95.5, v)
	assert.Equal(t, []string{"note", "ldl", "hdl"}, p.Skipped)
}

func TestPanel_UnmarshalJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an object", `[1,2]`},
		{"missing date", `{"glucose":90}`},
		{"bad date", `{"date":"March","glucose":90}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Panel
			assert.Error(t, json.Unmarshal([]byte(tt.input), &p))
		})
	}
}

func TestPanel_MarshalJSON(t *testing.T) {
	p := NewPanel(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Measurement{Analyte: "sodium", Value: 140},
		Measurement{Analyte: "hba1c", Value: 5.7},
	)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2025-01-15","sodium":140,"hba1c":5.7}`, string(data))

	var back Panel
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p.Values, back.Values)
	assert.True(t, p.Date.Equal(back.Date))
}

func TestPanel_SetReplacesInPlace(t *testing.T) {
	var p Panel
	p.Set("glucose", 90)
	p.Set("ldl", 110)
	p.Set("glucose", 95)

	assert.Equal(t, []string{"glucose", "ldl"}, p.Analytes())
	v, _ := p.Value("glucose")
	assert.Equal(t, 95.0, v)
}

func TestPanel_Fingerprint(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	a := NewPanel(date, Measurement{"glucose", 90}, Measurement{"ldl", 110})
	b := NewPanel(date, Measurement{"glucose", 90}, Measurement{"ldl", 110})
	c := NewPanel(date, Measurement{"glucose", 91}, Measurement{"ldl", 110})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-30T14:22:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("30/06/2025")
	assert.Error(t, err)
}

func TestHistory_Latest(t *testing.T) {
	_, ok := History{}.Latest()
	assert.False(t, ok)

	h := History{
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.Equal(t, time.February, latest.Date.Month())
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityNormal.Rank(), SeveritySlightlyCritical.Rank())
	assert.Less(t, SeveritySlightlyCritical.Rank(), SeverityCritical.Rank())
	assert.Equal(t, -1, SeverityUnknown.Rank())
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, ParseSeverity("high"))
	assert.Equal(t, SeveritySlightlyCritical, ParseSeverity("moderate"))
	assert.Equal(t, SeverityNormal, ParseSeverity("normal"))
	assert.Equal(t, SeverityUnknown, ParseSeverity("???"))
}

func TestRemoteAnalysis_Clone(t *testing.T) {
	orig := &RemoteAnalysis{
		Narrative:       "ok",
		Risks:           map[string]Risk{"ldl": {Level: SeverityCritical}},
		Recommendations: []string{"walk"},
	}
	cp := orig.Clone()
	cp.Risks["ldl"] = Risk{Level: SeverityNormal}
	cp.Recommendations[0] = "run"

	assert.Equal(t, SeverityCritical, orig.Risks["ldl"].Level)
	assert.Equal(t, "walk", orig.Recommendations[0])

	var nilAnalysis *RemoteAnalysis
	assert.Nil(t, nilAnalysis.Clone())
}
