package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementqa/internal/domain"
)

const withChart = "Food dominates spending at $500.\n\n" +
	"```json\n" +
	`{"chart_type": "pie", "data": {"Category": ["Food", "Rent"], "Amount": [500, 900]}, "title": "Spend by category"}` +
	"\n```"

func TestParse_ExtractsChart(t *testing.T) {
	p := Parse(withChart)
	require.NoError(t, p.Err)
	require.NotNil(t, p.Chart)

	assert.Equal(t, "Food dominates spending at $500.", p.Prose)
	assert.NotContains(t, p.Prose, "```")
	assert.Equal(t, domain.ChartPie, p.Chart.ChartType)
	assert.Equal(t, "Spend by category", p.Chart.Title)
	assert.Equal(t, []any{"Food", "Rent"}, p.Chart.Data["Category"])
	assert.Equal(t, []any{500.0, 900.0}, p.Chart.Data["Amount"])
	assert.Equal(t, 2, p.Chart.Rows())

	col, ok := p.Chart.IndexColumn()
	assert.True(t, ok)
	assert.Equal(t, "Category", col)
}

func TestParse_Defaults(t *testing.T) {
	p := Parse("Trend below.\n```json\n{\"data\": {\"Date\": [\"Jan\", \"Feb\"], \"Amount\": [1, 2]}}\n```\nThanks.")
	require.NoError(t, p.Err)
	assert.Equal(t, domain.ChartBar, p.Chart.ChartType)
	assert.Equal(t, DefaultTitle, p.Chart.Title)
	assert.Equal(t, "Trend below.\n\nThanks.", p.Prose)

	col, _ := p.Chart.IndexColumn()
	assert.Equal(t, "Date", col)
}

func TestParse_NoBlock(t *testing.T) {
	text := "Total spending on Food was $500. No chart needed."
	p := Parse(text)
	assert.Equal(t, text, p.Prose)
	assert.Nil(t, p.Chart)
	assert.NoError(t, p.Err)
}

func TestParse_OnlyFirstBlock(t *testing.T) {
	text := "A\n```json\n{\"data\":{\"x\":[1]}}\n```\nB\n```json\n{\"data\":{\"y\":[2]}}\n```"
	p := Parse(text)
	require.NoError(t, p.Err)
	assert.Contains(t, p.Chart.Data, "x")
	assert.Contains(t, p.Prose, "```json")
	assert.Contains(t, p.Prose, "B")
}

func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"bad json":       "{\"chart_type\": \"bar\", \"data\": {",
		"no data":        `{"chart_type": "bar", "title": "x"}`,
		"unknown type":   `{"chart_type": "scatter", "data": {"a": [1]}}`,
		"ragged columns": `{"data": {"Category": ["A", "B"], "Amount": [1]}}`,
		"scalar column":  `{"data": {"Category": "A"}}`,
		"null column":    `{"data": {"Category": null}}`,
		"not an object":  `[1, 2, 3]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var p Parsed
			assert.NotPanics(t, func() { p = Parse("Here you go.\n```json\n" + body + "\n```") })
			assert.Nil(t, p.Chart)
			var ce *domain.ChartParseError
			assert.True(t, errors.As(p.Err, &ce))
			assert.Equal(t, "Here you go.", p.Prose)
		})
	}
}

func TestParse_RequiresNewlineDelimiters(t *testing.T) {
	text := "inline ```json {\"data\":{\"a\":[1]}}```"
	p := Parse(text)
	assert.Nil(t, p.Chart)
	assert.Equal(t, text, p.Prose)
}
