package labs

import "github.com/helmcode/labs-ai/pkg/model"

type Categorizer struct {
	ranges Ranges
}

func NewCategorizer(ranges Ranges) *Categorizer {
	return &Categorizer{ranges: ranges}
}

// Categorize returns one result per recorded analyte, in recorded order.
// Analytes without a range are kept with unknown severity.
func (c *Categorizer) Categorize(panel model.Panel) []model.CategorizedResult {
	out := make([]model.CategorizedResult, 0, len(panel.Values))
	for _, m := range panel.Values {
		r, ok := c.ranges.Lookup(m.Analyte)
		out = append(out, model.CategorizedResult{
			Analyte:   m.Analyte,
			Label:     c.ranges.Label(m.Analyte),
			Value:     m.Value,
			Unit:      c.ranges.Unit(m.Analyte),
			Severity:  Classify(m.Value, r, ok),
			Reference: ReferenceString(r, ok),
		})
	}
	return out
}

// CategorizeLatest categorizes the most recent panel, or returns nil for an empty history.
func (c *Categorizer) CategorizeLatest(history model.History) []model.CategorizedResult {
	latest, ok := history.Latest()
	if !ok {
		return nil
	}
	return c.Categorize(latest)
}

func Distribution(results []model.CategorizedResult) model.StatusDistribution {
	var d model.StatusDistribution
	for _, r := range results {
		switch r.Severity {
		case model.SeverityNormal:
			d.Normal++
		case model.SeveritySlightlyCritical:
			d.SlightlyCritical++
		case model.SeverityCritical:
			d.Critical++
		default:
			d.Unknown++
		}
	}
	return d
}
