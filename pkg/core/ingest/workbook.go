package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"financial_model/pkg/core/historical"
)

// ReadWorkbook scans the First View, Fixed Assets, Balance Sheet and
// Cashflow sheets. Column A is the caption and the remaining cells are the
// yearly values. Missing sheets are skipped.
func ReadWorkbook(r io.Reader, c historical.Classifier) (historical.Set, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	present := make(map[string]string)
	for _, name := range f.GetSheetList() {
		present[strings.ToLower(strings.TrimSpace(name))] = name
	}

	set := make(historical.Set)
	for _, sheet := range historical.Sheets {
		actual, ok := present[strings.ToLower(sheet)]
		if !ok {
			continue
		}
		rows, err := f.GetRows(actual, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", actual, err)
		}
		historical.Collect(c, sheet, rows, set)
	}
	return set, nil
}
