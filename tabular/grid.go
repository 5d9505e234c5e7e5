// Package tabular parses downloaded documents (delimited text, spreadsheets
// and PDFs) into header-plus-rows grids and reduces them to a single number.
package tabular

import (
	"strings"

	"github.com/use-agent/quizhook/answer"
)

// Grid is a 2-D table of string cells. Every row has exactly len(Header)
// cells.
type Grid struct {
	Header []string
	Rows   [][]string
}

// NewGrid builds a Grid from raw records, taking the first record as the
// header. Records whose width differs from the header's are dropped. When
// pad is set, short records are right-padded with empty cells instead.
// ok is false when there is no header.
func NewGrid(records [][]string, pad bool) (Grid, bool) {
	if len(records) == 0 || len(records[0]) == 0 {
		return Grid{}, false
	}
	header := trimCells(records[0])
	width := len(header)

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		switch {
		case len(rec) == width:
		case pad && len(rec) < width:
			padded := make([]string, width)
			copy(padded, rec)
			rec = padded
		default:
			continue
		}
		rows = append(rows, trimCells(rec))
	}
	return Grid{Header: header, Rows: rows}, true
}

// Width returns the number of columns.
func (g Grid) Width() int { return len(g.Header) }

// Column returns the cells of column i, header excluded.
func (g Grid) Column(i int) []string {
	col := make([]string, 0, len(g.Rows))
	for _, row := range g.Rows {
		col = append(col, row[i])
	}
	return col
}

// SumFirstNumericColumn scans columns left to right and returns the sum of
// the first column holding at least one cell that answer.Coerce accepts.
// Cells that do not coerce are skipped, not counted as zero. ok is false
// when no column has a numeric cell.
func (g Grid) SumFirstNumericColumn() (sum float64, column string, ok bool) {
	for i := 0; i < g.Width(); i++ {
		var (
			total float64
			hits  int
		)
		for _, cell := range g.Column(i) {
			if f, coerced := answer.Coerce(cell); coerced {
				total += f
				hits++
			}
		}
		if hits > 0 {
			return total, g.Header[i], true
		}
	}
	return 0, "", false
}

func trimCells(rec []string) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
