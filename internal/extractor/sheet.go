package extractor

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"statementqa/internal/domain"
)

// sheetRegions splits a sheet into Documents at blank rows. Each region keeps
// its sheet name and 1-based row span so answers can cite a cell range.
func sheetRegions(source, sheet string, rows [][]string) []domain.Document {
	var (
		docs  []domain.Document
		lines []string
		start int
		width int
	)
	flush := func(end int) {
		if len(lines) == 0 {
			return
		}
		col, err := excelize.ColumnNumberToName(max(width, 1))
		if err != nil {
			col = "A"
		}
		docs = append(docs, domain.Document{
			Content: strings.Join(lines, "\n"),
			Metadata: map[string]any{
				"source":    source,
				"sheet":     sheet,
				"start_row": start,
				"end_row":   end,
				"location":  fmt.Sprintf("%s!A%d:%s%d", sheet, start, col, end),
			},
		})
		lines, width = nil, 0
	}

	for i, row := range rows {
		cells := trimRow(row)
		if len(cells) == 0 {
			flush(i)
			continue
		}
		if len(lines) == 0 {
			start = i + 1
		}
		width = max(width, len(cells))
		lines = append(lines, strings.Join(cells, "\t"))
	}
	flush(len(rows))
	return docs
}

// trimRow trims every cell and drops trailing empties. A row of blanks comes
// back empty.
func trimRow(row []string) []string {
	out := make([]string, len(row))
	last := -1
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
		if out[i] != "" {
			last = i
		}
	}
	return out[:last+1]
}
