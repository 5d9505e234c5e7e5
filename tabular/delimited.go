package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when a document parses but holds no header row.
var ErrNoHeader = errors.New("tabular: no header row")

// ParseDelimited parses delimited text (CSV when delimiter is ',', TSV when
// '\t') into exactly one Grid. A UTF-8 or UTF-16 byte-order mark is honoured
// and stripped. Quoting is lenient and ragged rows are dropped by NewGrid
// rather than failing the parse.
func ParseDelimited(data []byte, delimiter rune) (Grid, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	decoded := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	r := csv.NewReader(decoded)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return Grid{}, fmt.Errorf("tabular: parse delimited: %w", err)
	}
	g, ok := NewGrid(records, false)
	if !ok {
		return Grid{}, ErrNoHeader
	}
	return g, nil
}
