package domain

import (
	"fmt"
	"strings"
)

// Mode selects the response verbosity and prompt template.
type Mode string

const (
	ModeConcise  Mode = "Concise"
	ModeDetailed Mode = "Detailed"
)

// ParseMode accepts the mode name case-insensitively. An empty string is Concise.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "concise":
		return ModeConcise, nil
	case "detailed":
		return ModeDetailed, nil
	default:
		return "", fmt.Errorf("unknown response mode %q (want Concise or Detailed)", s)
	}
}

// ChartType enumerates the chart kinds the presentation layer can draw.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// Valid reports whether t is one of the supported chart types.
func (t ChartType) Valid() bool {
	switch t {
	case ChartBar, ChartLine, ChartPie:
		return true
	}
	return false
}

// ChartSpec is a validated, presentation-ready chart description parsed from
// one completion. Data maps column names to equally long value columns.
type ChartSpec struct {
	ChartType ChartType        `json:"chart_type"`
	Data      map[string][]any `json:"data"`
	Title     string           `json:"title"`
}

// IndexColumn returns the column used for x-axis labels: "Category" wins over
// "Date". The boolean is false when neither is present.
func (c *ChartSpec) IndexColumn() (string, bool) {
	for _, name := range []string{"Category", "Date"} {
		if _, ok := c.Data[name]; ok {
			return name, true
		}
	}
	return "", false
}

// Rows returns the number of values per column.
func (c *ChartSpec) Rows() int {
	for _, col := range c.Data {
		return len(col)
	}
	return 0
}

// Source is a retrieved excerpt prepared for citation display.
type Source struct {
	Location string `json:"location"`
	Content  string `json:"content"`
}

// Answer is everything the presentation layer needs for one query.
type Answer struct {
	Prose      string     `json:"prose"`
	Chart      *ChartSpec `json:"chart,omitempty"`
	Sources    []Source   `json:"sources"`
	WebContext string     `json:"web_context,omitempty"`
	UsedWeb    bool       `json:"used_web"`
	// Notice is an informational line for the user, e.g. that web results
	// were blended into a detailed answer.
	Notice string `json:"notice,omitempty"`
}

// Location renders the provenance of chunk metadata for citations.
func Location(meta map[string]any) string {
	if loc, ok := meta["location"].(string); ok && loc != "" {
		return loc
	}
	if page, ok := meta["page"]; ok {
		return fmt.Sprintf("Page %v", page)
	}
	return "Page N/A"
}
