package tabular

import (
	"errors"
	"testing"
)

func TestParseDelimited_CSV(t *testing.T) {
	g, err := ParseDelimited([]byte("name,score\na,5\nb,15\n"), ',')
	if err != nil {
		t.Fatal(err)
	}
	sum, col, ok := g.SumFirstNumericColumn()
	if !ok || sum != 20 || col != "score" {
		t.Errorf("got (%v, %q, %v), want (20, score, true)", sum, col, ok)
	}
}

func TestParseDelimited_BOMAndTabs(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, "qty\tlabel\n2\tx\n4\ty\n"...)
	g, err := ParseDelimited(data, '\t')
	if err != nil {
		t.Fatal(err)
	}
	if g.Header[0] != "qty" {
		t.Fatalf("header[0] = %q, BOM not stripped", g.Header[0])
	}
	if sum, _, _ := g.SumFirstNumericColumn(); sum != 6 {
		t.Errorf("sum = %v, want 6", sum)
	}
}

func TestParseDelimited_RaggedAndQuoted(t *testing.T) {
	data := "a,b\n1,\"2\"\n3\n\"x\"y,4\n"
	g, err := ParseDelimited([]byte(data), ',')
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Rows) != 2 {
		t.Fatalf("rows = %v, want 2", g.Rows)
	}
}

func TestParseDelimited_Empty(t *testing.T) {
	_, err := ParseDelimited(nil, ',')
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("err = %v, want ErrNoHeader", err)
	}
}
