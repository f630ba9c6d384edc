package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"gopkg.in/yaml.v3"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidFormat reports whether format is one of human, json or yaml.
func ValidFormat(format string) bool {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// LatestView is the categorized latest panel.
type LatestView struct {
	Date         string                    `json:"date" yaml:"date"`
	Results      []model.CategorizedResult `json:"results" yaml:"results"`
	Distribution model.StatusDistribution  `json:"distribution" yaml:"distribution"`
	Skipped      []string                  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// SeriesView is one analyte's chart series over a window.
type SeriesView struct {
	Analyte string              `json:"analyte" yaml:"analyte"`
	Label   string              `json:"label" yaml:"label"`
	Unit    string              `json:"unit,omitempty" yaml:"unit,omitempty"`
	Window  string              `json:"window" yaml:"window"`
	Points  []model.ChartPoint  `json:"points" yaml:"points"`
	Summary model.SeriesSummary `json:"summary" yaml:"summary"`
}

type Printer struct {
	out    io.Writer
	format string
}

func New(out io.Writer, format string) *Printer {
	if format == "" {
		format = FormatHuman
	}
	return &Printer{out: out, format: format}
}

func (p *Printer) Latest(view LatestView) error {
	if p.format != FormatHuman {
		return p.encode(view)
	}
	p.latestHuman(view)
	return nil
}

func (p *Printer) Series(view SeriesView) error {
	if p.format != FormatHuman {
		return p.encode(view)
	}
	p.seriesHuman(view)
	return nil
}

func (p *Printer) Analysis(snap merger.Snapshot) error {
	if p.format != FormatHuman {
		return p.encode(snap)
	}
	p.analysisHuman(snap)
	return nil
}

func (p *Printer) encode(v interface{}) error {
	switch p.format {
	case FormatJSON:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(p.out, string(output))
	case FormatYAML:
		output, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprint(p.out, string(output))
	default:
		return fmt.Errorf("unsupported output format: %s", p.format)
	}
	return nil
}

func (p *Printer) latestHuman(view LatestView) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(p.out)
	cyan.Fprintf(p.out, "🧪 LAB RESULTS (%s)\n\n", view.Date)

	if len(view.Results) == 0 {
		fmt.Fprintln(p.out, "   No lab results recorded")
		fmt.Fprintln(p.out)
		return
	}

	for _, r := range view.Results {
		value := labs.FormatNumber(r.Value)
		if r.Unit != "" {
			value += " " + r.Unit
		}
		fmt.Fprintf(p.out, "   %s %-24s %-14s ref %-10s %s\n",
			getSeverityIcon(r.Severity), r.Label, value, r.Reference,
			getSeverityColor(r.Severity).Sprint(severityLabel(r.Severity)))
	}
	fmt.Fprintln(p.out)

	if len(view.Skipped) > 0 {
		fmt.Fprintf(p.out, "   %s\n\n", color.YellowString("Skipped unreadable values: %s", strings.Join(view.Skipped, ", ")))
	}

	d := view.Distribution
	white.Fprintln(p.out, "📊 STATUS DISTRIBUTION:")
	fmt.Fprintf(p.out, "   %s normal: %d   %s slightly critical: %d   %s critical: %d",
		getSeverityIcon(model.SeverityNormal), d.Normal,
		getSeverityIcon(model.SeveritySlightlyCritical), d.SlightlyCritical,
		getSeverityIcon(model.SeverityCritical), d.Critical)
	if d.Unknown > 0 {
		fmt.Fprintf(p.out, "   %s unknown: %d", getSeverityIcon(model.SeverityUnknown), d.Unknown)
	}
	fmt.Fprintln(p.out)
	p.footer()
}

func (p *Printer) seriesHuman(view SeriesView) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(p.out)
	title := view.Label
	if view.Unit != "" {
		title += " (" + view.Unit + ")"
	}
	cyan.Fprintf(p.out, "📈 %s, %s\n\n", title, view.Window)

	if len(view.Points) == 0 {
		fmt.Fprintln(p.out, "   No lab results in this window")
		fmt.Fprintln(p.out)
		return
	}

	for _, pt := range view.Points {
		value := color.HiBlackString("n/a")
		if pt.Value != nil {
			value = labs.FormatNumber(*pt.Value)
		}
		ref := ""
		if pt.HasReference {
			ref = fmt.Sprintf("ref %s-%s", labs.FormatNumber(pt.ReferenceMin), labs.FormatNumber(pt.ReferenceMax))
		}
		fmt.Fprintf(p.out, "   %s  %-10s %s\n", pt.Timestamp, value, ref)
	}
	fmt.Fprintln(p.out)

	s := view.Summary
	if s.Points > 0 {
		white.Fprintln(p.out, "📊 SUMMARY:")
		fmt.Fprintf(p.out, "   Current: %s   Average: %s   Min: %s   Peak: %s\n",
			labs.FormatNumber(s.Current), labs.FormatNumber(round2(s.Average)),
			labs.FormatNumber(s.Minimum), labs.FormatNumber(s.Peak))
		fmt.Fprintf(p.out, "   Trend: %s %s\n", getTrendIcon(s.Trend), s.Trend)
	}
	p.footer()
}

func (p *Printer) analysisHuman(snap merger.Snapshot) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(p.out)

	if snap.LastError != nil {
		red.Fprintf(p.out, "✗ ANALYSIS FAILED: %s\n", snap.LastError.Message)
		if snap.Result != nil {
			fmt.Fprintln(p.out, color.HiBlackString("   Showing the previous analysis"))
		}
		fmt.Fprintln(p.out)
	}
	if snap.Pending {
		fmt.Fprintln(p.out, color.HiBlackString("⏳ Analysis in progress..."))
		fmt.Fprintln(p.out)
	}

	a := snap.Result
	if a == nil {
		if snap.LastError == nil && !snap.Pending {
			fmt.Fprintln(p.out, "   No analysis available")
		}
		return
	}

	white.Fprintln(p.out, "📄 ANALYSIS:")
	fmt.Fprintln(p.out, wrapText(a.Narrative, 80, "   "))
	fmt.Fprintln(p.out)

	if a.RiskLevel != "" {
		sev := model.ParseSeverity(strings.ToLower(a.RiskLevel))
		getSeverityColor(sev).Fprintf(p.out, "📊 OVERALL RISK: %s\n\n", strings.ToUpper(a.RiskLevel))
	}

	if len(a.Risks) > 0 {
		yellow.Fprintln(p.out, "⚠️  RISKS:")
		analytes := make([]string, 0, len(a.Risks))
		for analyte := range a.Risks {
			analytes = append(analytes, analyte)
		}
		sort.Strings(analytes)
		for _, analyte := range analytes {
			risk := a.Risks[analyte]
			fmt.Fprintf(p.out, "   %s %s: %s", getSeverityIcon(risk.Level), analyte, severityLabel(risk.Level))
			if risk.Note != "" {
				fmt.Fprintf(p.out, " (%s)", risk.Note)
			}
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out)
	}

	if len(a.Recommendations) > 0 {
		cyan.Fprintln(p.out, "💡 RECOMMENDATIONS:")
		for i, rec := range a.Recommendations {
			fmt.Fprintf(p.out, "   %d. %s\n", i+1, rec)
		}
		fmt.Fprintln(p.out)
	}

	meta := []string{}
	if a.Source != "" {
		meta = append(meta, "source "+a.Source)
	}
	if !a.AnalyzedAt.IsZero() {
		meta = append(meta, "analyzed "+a.AnalyzedAt.Format("2006-01-02 15:04"))
	}
	if len(meta) > 0 {
		fmt.Fprintln(p.out, color.HiBlackString("   %s", strings.Join(meta, ", ")))
	}
	p.footer()
}

func (p *Printer) footer() {
	fmt.Fprintln(p.out, strings.Repeat("─", 80))
	fmt.Fprintf(p.out, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func severityLabel(s model.Severity) string {
	switch s {
	case model.SeveritySlightlyCritical:
		return "slightly critical"
	case "":
		return string(model.SeverityUnknown)
	default:
		return string(s)
	}
}

func getSeverityColor(severity model.Severity) *color.Color {
	switch severity {
	case model.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.SeveritySlightlyCritical:
		return color.New(color.FgYellow)
	case model.SeverityNormal:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func getSeverityIcon(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "🔴"
	case model.SeveritySlightlyCritical:
		return "🟡"
	case model.SeverityNormal:
		return "🟢"
	default:
		return "⚪"
	}
}

func getTrendIcon(trend string) string {
	switch trend {
	case "increasing":
		return "↗"
	case "decreasing":
		return "↘"
	default:
		return "→"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder

	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
