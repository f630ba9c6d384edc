package store

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/model"
)

// demoSpread gives each analyte's base value and random spread.
var demoSpread = []struct {
	analyte string
	base    float64
	spread  float64
}{
	{"glucose", 85, 40},
	{"hba1c", 5.0, 2.5},
	{"cholesterol", 150, 100},
	{"ldl", 70, 80},
	{"hdl", 40, 30},
	{"triglycerides", 100, 150},
	{"creatinine", 0.8, 0.4},
	{"bun", 10, 10},
	{"sodium", 138, 4},
	{"potassium", 4.0, 0.8},
}

// DemoHistory generates one panel per month for the months ending at now's
// month, oldest first. Values are rounded to two decimals.
func DemoHistory(now time.Time, months int, rng *rand.Rand) model.History {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	history := make(model.History, 0, months)
	for i := months - 1; i >= 0; i-- {
		panel := model.NewPanel(labs.SubtractMonths(today, i))
		for _, s := range demoSpread {
			v := s.base + rng.Float64()*s.spread
			panel.Set(s.analyte, math.Round(v*100)/100)
		}
		history = append(history, panel)
	}
	return history
}
