package labs

import (
	"fmt"
	"math"
	"strconv"

	"github.com/helmcode/labs-ai/pkg/model"
)

// Ranges is the reference lookup the pipeline reads from.
type Ranges interface {
	Lookup(analyte string) (model.Range, bool)
	Unit(analyte string) string
	Label(analyte string) string
}

const (
	criticalLow  = 0.8
	criticalHigh = 1.3
	slightLow    = 0.9
	slightHigh   = 1.2
)

// Classify places a value against a range. The first matching tier wins and
// all comparisons are strict, so a value exactly on a threshold stays in the
// milder tier. Without a range, or for a non-finite value, the result is unknown.
func Classify(value float64, r model.Range, ok bool) model.Severity {
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return model.SeverityUnknown
	}
	switch {
	case value < r.Min*criticalLow || value > r.Max*criticalHigh:
		return model.SeverityCritical
	case value < r.Min*slightLow || value > r.Max*slightHigh:
		return model.SeveritySlightlyCritical
	default:
		return model.SeverityNormal
	}
}

type Classifier struct {
	ranges Ranges
}

func NewClassifier(ranges Ranges) *Classifier {
	return &Classifier{ranges: ranges}
}

func (c *Classifier) ClassifyAnalyte(analyte string, value float64) model.Severity {
	r, ok := c.ranges.Lookup(analyte)
	return Classify(value, r, ok)
}

// Range is Lookup with an error for callers that want to report unknown analytes.
func (c *Classifier) Range(analyte string) (model.Range, error) {
	r, ok := c.ranges.Lookup(analyte)
	if !ok {
		return model.Range{}, fmt.Errorf("%w: %s", ErrUnknownAnalyte, analyte)
	}
	return r, nil
}

// FormatNumber renders a value in shortest form: 4.0 -> "4", 5.6 -> "5.6".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReferenceString renders a range as "min-max", or "N/A" when there is none.
func ReferenceString(r model.Range, ok bool) string {
	if !ok {
		return "N/A"
	}
	return FormatNumber(r.Min) + "-" + FormatNumber(r.Max)
}
