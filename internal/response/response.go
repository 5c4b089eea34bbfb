// Package response splits a completion into display prose and an optional
// chart description.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"statementqa/internal/domain"
)

// DefaultTitle is used when the chart block has no title.
const DefaultTitle = "Data Visualization"

var chartBlock = regexp.MustCompile("(?s)```json\n(.*?)\n```")

// Parsed is the outcome of Parse. Err is a *domain.ChartParseError when a
// block was found but could not be used; Prose is valid in every case.
type Parsed struct {
	Prose string
	Chart *domain.ChartSpec
	Err   error
}

// Parse extracts the first fenced json block. Without a block the whole text
// is prose.
func Parse(text string) (p Parsed) {
	m := chartBlock.FindStringSubmatchIndex(text)
	if m == nil {
		return Parsed{Prose: text}
	}
	block, body := text[m[0]:m[1]], text[m[2]:m[3]]
	p.Prose = strings.TrimSpace(strings.Replace(text, block, "", 1))

	defer func() {
		if r := recover(); r != nil {
			p.Chart = nil
			p.Err = &domain.ChartParseError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	chart, err := ParseChart(body)
	if err != nil {
		p.Err = &domain.ChartParseError{Err: err}
		return p
	}
	p.Chart = chart
	return p
}

// ParseChart validates one chart JSON object.
func ParseChart(raw string) (*domain.ChartSpec, error) {
	var doc struct {
		ChartType *string                    `json:"chart_type"`
		Data      map[string]json.RawMessage `json:"data"`
		Title     *string                    `json:"title"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, errors.New(`missing "data"`)
	}

	chart := &domain.ChartSpec{
		ChartType: domain.ChartBar,
		Data:      make(map[string][]any, len(doc.Data)),
		Title:     DefaultTitle,
	}
	if doc.ChartType != nil {
		chart.ChartType = domain.ChartType(strings.ToLower(strings.TrimSpace(*doc.ChartType)))
		if !chart.ChartType.Valid() {
			return nil, fmt.Errorf("unsupported chart_type %q", *doc.ChartType)
		}
	}
	if doc.Title != nil && strings.TrimSpace(*doc.Title) != "" {
		chart.Title = *doc.Title
	}

	rows := -1
	for name, rawCol := range doc.Data {
		var col []any
		if err := json.Unmarshal(rawCol, &col); err != nil || col == nil {
			return nil, fmt.Errorf("column %q is not an array", name)
		}
		if rows >= 0 && len(col) != rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", name, len(col), rows)
		}
		rows = len(col)
		chart.Data[name] = col
	}
	return chart, nil
}
