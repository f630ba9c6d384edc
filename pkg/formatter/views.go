package formatter

import (
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/model"
)

// NewLatestView categorizes the most recent panel of history. An empty
// history gives an empty view.
func NewLatestView(history model.History, categorizer *labs.Categorizer) LatestView {
	latest, ok := history.Latest()
	if !ok {
		return LatestView{Results: []model.CategorizedResult{}}
	}
	results := categorizer.Categorize(latest)
	return LatestView{
		Date:         latest.Date.Format(model.DateLayout),
		Results:      results,
		Distribution: labs.Distribution(results),
		Skipped:      latest.Skipped,
	}
}

// NewSeriesView builds the chart series for analyte over window.
func NewSeriesView(history model.History, window labs.Window, analyte string, ranges labs.Ranges) SeriesView {
	points := labs.NewSeriesBuilder(ranges).Build(labs.Select(history, window), analyte)
	return SeriesView{
		Analyte: analyte,
		Label:   ranges.Label(analyte),
		Unit:    ranges.Unit(analyte),
		Window:  window.String(),
		Points:  points,
		Summary: labs.Summarize(analyte, points),
	}
}
