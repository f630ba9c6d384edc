package labs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helmcode/labs-ai/pkg/model"
)

type WindowKind int

const (
	WindowAll WindowKind = iota
	// WindowMonths keeps panels dated within N calendar months of the latest panel.
	WindowMonths
	// WindowCount keeps the trailing N panels.
	WindowCount
)

type Window struct {
	Kind  WindowKind
	N     int
	Label string
}

var (
	AllTime     = Window{Kind: WindowAll, Label: "all"}
	ThreeMonths = Window{Kind: WindowMonths, N: 3, Label: "3m"}
	SixMonths   = Window{Kind: WindowMonths, N: 6, Label: "6m"}
	OneYear     = Window{Kind: WindowMonths, N: 12, Label: "1y"}
)

var spanPattern = regexp.MustCompile(`^(\d+)(m|y)$`)

// ParseWindow accepts "all", calendar spans such as "3m", "6m", "1y", and
// panel counts written "last:N" or as a bare integer.
func ParseWindow(s string) (Window, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	if label == "" || label == "all" {
		return AllTime, nil
	}

	if m := spanPattern.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
		}
		if m[2] == "y" {
			n *= 12
		}
		return Window{Kind: WindowMonths, N: n, Label: label}, nil
	}

	count := strings.TrimPrefix(label, "last:")
	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return Window{Kind: WindowCount, N: n, Label: "last:" + count}, nil
}

func (w Window) String() string {
	return w.Label
}

// Select returns the panels that fall inside the window, in their original
// order. The result never shares a backing array with history.
func Select(history model.History, w Window) model.History {
	switch w.Kind {
	case WindowCount:
		start := 0
		if w.N < len(history) {
			start = len(history) - w.N
		}
		return append(model.History{}, history[start:]...)

	case WindowMonths:
		if len(history) == 0 {
			return model.History{}
		}
		latest := history[0].Date
		for _, p := range history[1:] {
			if p.Date.After(latest) {
				latest = p.Date
			}
		}
		cutoff := SubtractMonths(latest, w.N)
		out := model.History{}
		for _, p := range history {
			if p.Date.After(cutoff) {
				out = append(out, p)
			}
		}
		return out

	default:
		return append(model.History{}, history...)
	}
}

// SubtractMonths moves back n calendar months, clamping to the last day of
// the target month instead of overflowing into the next one.
func SubtractMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -n, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
