// Package chart renders an analyte series as a standalone HTML line chart.
package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/helmcode/labs-ai/pkg/model"
)

// Series is what Render needs to draw one analyte.
type Series struct {
	Title  string
	Unit   string
	Points []model.ChartPoint
}

// Render writes the chart page to w. Panels without a value are drawn as gaps
// and the reference range, when known, as dashed Ref Min / Ref Max lines.
func Render(w io.Writer, s Series) error {
	xAxis := make([]string, 0, len(s.Points))
	yData := make([]opts.LineData, 0, len(s.Points))

	var refMin, refMax float64
	hasRef := false
	var dataMin, dataMax float64
	seen := false

	for _, p := range s.Points {
		xAxis = append(xAxis, p.Date)
		if p.Value == nil {
			yData = append(yData, opts.LineData{Value: "-"})
		} else {
			v := *p.Value
			yData = append(yData, opts.LineData{Value: v})
			if !seen || v < dataMin {
				dataMin = v
			}
			if !seen || v > dataMax {
				dataMax = v
			}
			seen = true
		}
		if p.HasReference {
			refMin, refMax, hasRef = p.ReferenceMin, p.ReferenceMax, true
		}
	}

	yAxis := opts.YAxis{Name: s.Unit}
	if hasRef {
		minVal, maxVal := axisBounds(refMin, refMax, dataMin, dataMax, seen)
		yAxis.Min = minVal
		yAxis.Max = maxVal
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title}),
		charts.WithTitleOpts(opts.Title{Title: s.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(yAxis),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(true),
			ShowSymbol: opts.Bool(true),
		}),
	}
	if hasRef {
		seriesOpts = append(seriesOpts, func(ss *charts.SingleSeries) {
			ss.MarkLines = &opts.MarkLines{
				Data: []interface{}{
					opts.MarkLineNameYAxisItem{Name: "Ref Min", YAxis: refMin},
					opts.MarkLineNameYAxisItem{Name: "Ref Max", YAxis: refMax},
				},
				MarkLineStyle: opts.MarkLineStyle{
					Symbol: []string{"none", "none"},
					LineStyle: &opts.LineStyle{
						Color: "rgba(128, 128, 128, 0.6)",
						Type:  "dashed",
						Width: 1.5,
					},
				},
			}
		})
	}

	line.SetXAxis(xAxis).
		AddSeries(s.Title, yData).
		SetSeriesOptions(seriesOpts...)

	return line.Render(w)
}

// axisBounds pads the reference range by 10% and widens it to fit the data.
func axisBounds(refMin, refMax, dataMin, dataMax float64, haveData bool) (float64, float64) {
	padding := (refMax - refMin) * 0.1
	minVal := refMin - padding
	maxVal := refMax + padding
	if !haveData {
		return minVal, maxVal
	}
	spread := (dataMax - dataMin) * 0.05
	if dataMin < minVal {
		minVal = dataMin - spread
	}
	if dataMax > maxVal {
		maxVal = dataMax + spread
	}
	return minVal, maxVal
}
