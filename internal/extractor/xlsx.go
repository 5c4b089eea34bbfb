package extractor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"statementqa/internal/domain"
)

// ExtractXLSX reads every sheet in workbook order.
func ExtractXLSX(ctx context.Context, path, _ string) ([]domain.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	source := filepath.Base(path)
	var docs []domain.Document
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		docs = append(docs, sheetRegions(source, name, rows)...)
	}
	return docs, nil
}
