package tui

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cast"

	"statementqa/internal/domain"
)

var (
	chartTitleStyle = lipgloss.NewStyle().Bold(true)
	barStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	chartNoteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// series is one numeric column of a chart.
type series struct {
	name   string
	values []float64
}

// RenderChart draws chart as horizontal bars in at most width columns. Bar and
// line charts draw one group per value column; pie charts draw each slice
// with its share of the total. Columns whose values are not numeric are
// skipped.
func RenderChart(chart *domain.ChartSpec, width int) string {
	labels, cols := chartSeries(chart)
	var b strings.Builder
	b.WriteString(chartTitleStyle.Render(chart.Title))
	if len(cols) == 0 {
		b.WriteString("\n" + chartNoteStyle.Render("(no numeric columns to draw)"))
		return b.String()
	}

	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	barWidth := max(10, width-labelWidth-16)

	if chart.ChartType == domain.ChartPie {
		b.WriteString("\n")
		writePie(&b, labels, cols[0], labelWidth, barWidth)
		return b.String()
	}
	for _, s := range cols {
		b.WriteString("\n" + s.name + "\n")
		writeBars(&b, labels, s.values, labelWidth, barWidth)
	}
	if chart.ChartType == domain.ChartLine {
		b.WriteString(chartNoteStyle.Render("(line chart shown as bars)"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// chartSeries picks the label column ("Category", then "Date", else row
// numbers) and coerces the remaining columns to numbers in name order.
func chartSeries(chart *domain.ChartSpec) ([]string, []series) {
	rows := chart.Rows()
	idx, hasIdx := chart.IndexColumn()
	labels := make([]string, rows)
	for i := range labels {
		if hasIdx {
			labels[i] = cast.ToString(chart.Data[idx][i])
		} else {
			labels[i] = fmt.Sprint(i + 1)
		}
	}

	names := make([]string, 0, len(chart.Data))
	for name := range chart.Data {
		if !hasIdx || name != idx {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var out []series
	for _, name := range names {
		vals, ok := numeric(chart.Data[name])
		if ok {
			out = append(out, series{name: name, values: vals})
		}
	}
	return labels, out
}

// numeric converts a column with cast, accepting numbers and numeric
// strings such as "1,250.50". Null cells count as zero.
func numeric(col []any) ([]float64, bool) {
	out := make([]float64, len(col))
	for i, v := range col {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			v = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func writeBars(b *strings.Builder, labels []string, vals []float64, labelWidth, barWidth int) {
	peak := 0.0
	for _, v := range vals {
		peak = max(peak, math.Abs(v))
	}
	for i, v := range vals {
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(v) / peak * float64(barWidth)))
		}
		fmt.Fprintf(b, "%-*s %s %s\n", labelWidth, labels[i], barStyle.Render(strings.Repeat("█", n)), formatValue(v))
	}
}

func writePie(b *strings.Builder, labels []string, s series, labelWidth, barWidth int) {
	total := 0.0
	for _, v := range s.values {
		total += math.Abs(v)
	}
	for i, v := range s.values {
		share := 0.0
		if total > 0 {
			share = math.Abs(v) / total
		}
		n := int(math.Round(share * float64(barWidth)))
		fmt.Fprintf(b, "%-*s %s %5.1f%%\n", labelWidth, labels[i], barStyle.Render(strings.Repeat("█", n)), share*100)
	}
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
