package labs

import "github.com/helmcode/labs-ai/pkg/model"

// ChartDateLayout renders a panel date as short month plus two-digit year, "Jan 25".
const ChartDateLayout = "Jan 06"

type SeriesBuilder struct {
	ranges Ranges
}

func NewSeriesBuilder(ranges Ranges) *SeriesBuilder {
	return &SeriesBuilder{ranges: ranges}
}

// Build emits one point per panel, in panel order. A panel without the analyte
// yields a point with a nil value rather than being dropped.
func (b *SeriesBuilder) Build(history model.History, analyte string) []model.ChartPoint {
	r, ok := b.ranges.Lookup(analyte)
	if !ok {
		r = model.Range{}
	}

	points := make([]model.ChartPoint, 0, len(history))
	for _, p := range history {
		point := model.ChartPoint{
			Date:         p.Date.Format(ChartDateLayout),
			Timestamp:    p.Date.Format(model.DateLayout),
			ReferenceMin: r.Min,
			ReferenceMax: r.Max,
			HasReference: ok,
		}
		if v, found := p.Value(analyte); found {
			value := v
			point.Value = &value
		}
		points = append(points, point)
	}
	return points
}
