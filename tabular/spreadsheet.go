package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ParseSpreadsheet reads the first worksheet of an Office Open XML workbook
// into exactly one Grid. Leading blank rows are skipped; the first non-blank
// row is the header. The spreadsheet reader trims trailing empty cells, so
// short rows are padded back to the header width.
//
// Legacy binary .xls workbooks are not readable and return an error, which
// callers treat like any other unusable resource.
func ParseSpreadsheet(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Grid{}, fmt.Errorf("tabular: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Grid{}, ErrNoHeader
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Grid{}, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], err)
	}
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}

	g, ok := NewGrid(rows, true)
	if !ok {
		return Grid{}, ErrNoHeader
	}
	return g, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
