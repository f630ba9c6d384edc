package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used for panel dates everywhere on the wire.
const DateLayout = "2006-01-02"

type Measurement struct {
	Analyte string  `json:"analyte" yaml:"analyte"`
	Value   float64 `json:"value" yaml:"value"`
}

// Panel is the set of measurements recorded at one visit. Values keeps the
// order in which the analytes were recorded.
type Panel struct {
	Date   time.Time
	Values []Measurement

	// Skipped lists keys whose values could not be read as numbers on decode.
	Skipped []string
}

func NewPanel(date time.Time, values ...Measurement) Panel {
	return Panel{Date: date, Values: values}
}

func (p Panel) Value(analyte string) (float64, bool) {
	for _, m := range p.Values {
		if m.Analyte == analyte {
			return m.Value, true
		}
	}
	return 0, false
}

func (p Panel) Analytes() []string {
	out := make([]string, 0, len(p.Values))
	for _, m := range p.Values {
		out = append(out, m.Analyte)
	}
	return out
}

// Set records a value, replacing an earlier value for the same analyte in place.
func (p *Panel) Set(analyte string, value float64) {
	for i := range p.Values {
		if p.Values[i].Analyte == analyte {
			p.Values[i].Value = value
			return
		}
	}
	p.Values = append(p.Values, Measurement{Analyte: analyte, Value: value})
}

// ValueMap is the flat analyte -> value form sent to analysis services.
func (p Panel) ValueMap() map[string]float64 {
	out := make(map[string]float64, len(p.Values))
	for _, m := range p.Values {
		out[m.Analyte] = m.Value
	}
	return out
}

// Fingerprint identifies a panel's content: date plus measurements in order.
func (p Panel) Fingerprint() string {
	var b strings.Builder
	b.WriteString(p.Date.Format(DateLayout))
	for _, m := range p.Values {
		b.WriteByte('|')
		b.WriteString(m.Analyte)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(m.Value, 'f', -1, 64))
	}
	return b.String()
}

// MarshalJSON writes the flat object form {"date": "...", "<analyte>": value, ...}
// keeping the recorded analyte order.
func (p Panel) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"date":`)
	date, _ := json.Marshal(p.Date.Format(DateLayout))
	buf.Write(date)
	for _, m := range p.Values {
		key, err := json.Marshal(m.Analyte)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			return nil, fmt.Errorf("analyte %s: value %v is not representable in JSON", m.Analyte, m.Value)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(m.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat object form. Keys are kept in document order;
// values that are neither numbers nor numeric strings are recorded in Skipped.
func (p *Panel) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("panel must be a JSON object")
	}

	*p = Panel{}
	haveDate := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("panel key %q: %w", key, err)
		}

		if key == "date" {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("panel date: %w", err)
			}
			date, err := ParseDate(s)
			if err != nil {
				return err
			}
			p.Date = date
			haveDate = true
			continue
		}

		value, ok := numericValue(raw)
		if !ok {
			p.Skipped = append(p.Skipped, key)
			continue
		}
		p.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if !haveDate {
		return fmt.Errorf("panel is missing a date")
	}
	return nil
}

func numericValue(raw json.RawMessage) (float64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := n.Float64()
		return v, err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v, err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	return 0, false
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp and returns
// the calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid panel date %q", s)
}

// History is a chronological sequence of panels, oldest first.
type History []Panel

func (h History) Latest() (Panel, bool) {
	if len(h) == 0 {
		return Panel{}, false
	}
	return h[len(h)-1], true
}
