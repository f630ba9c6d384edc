package labs

import "github.com/helmcode/labs-ai/pkg/model"

// Summarize computes basic statistics over the recorded points of a series.
// Points without a value are ignored.
func Summarize(analyte string, points []model.ChartPoint) model.SeriesSummary {
	var values []float64
	for _, p := range points {
		if p.Value != nil {
			values = append(values, *p.Value)
		}
	}

	s := model.SeriesSummary{Analyte: analyte, Points: len(values), Trend: calculateTrend(values)}
	if len(values) == 0 {
		return s
	}

	sum := 0.0
	s.Peak = values[0]
	s.Minimum = values[0]
	s.Current = values[len(values)-1]
	for _, v := range values {
		sum += v
		if v > s.Peak {
			s.Peak = v
		}
		if v < s.Minimum {
			s.Minimum = v
		}
	}
	s.Average = sum / float64(len(values))
	return s
}

// calculateTrend compares the last value with the first; a change beyond 10% is a trend.
func calculateTrend(values []float64) string {
	if len(values) < 2 {
		return "stable"
	}

	first := values[0]
	last := values[len(values)-1]
	diff := last - first
	threshold := first * 0.1
	if threshold < 0 {
		threshold = -threshold
	}

	if diff > threshold {
		return "increasing"
	} else if diff < -threshold {
		return "decreasing"
	}
	return "stable"
}
