package tabular

import "testing"

func TestNewGrid_DropsRaggedRows(t *testing.T) {
	g, ok := NewGrid([][]string{
		{" id ", "amount"},
		{"a", "1"},
		{"b"},
		{"c", "2", "extra"},
		{"d", " 3 "},
	}, false)
	if !ok {
		t.Fatal("expected a grid")
	}
	if g.Header[0] != "id" {
		t.Errorf("header not trimmed: %q", g.Header[0])
	}
	if len(g.Rows) != 2 {
		t.Fatalf("rows = %v, want 2 conforming rows", g.Rows)
	}
	if g.Rows[1][1] != "3" {
		t.Errorf("cell not trimmed: %q", g.Rows[1][1])
	}
}

func TestNewGrid_PadsShortRows(t *testing.T) {
	g, ok := NewGrid([][]string{{"a", "b", "c"}, {"1"}}, true)
	if !ok {
		t.Fatal("expected a grid")
	}
	if len(g.Rows) != 1 || len(g.Rows[0]) != 3 {
		t.Fatalf("rows = %v", g.Rows)
	}
}

func TestNewGrid_Empty(t *testing.T) {
	if _, ok := NewGrid(nil, false); ok {
		t.Error("expected no grid for empty input")
	}
	if _, ok := NewGrid([][]string{{}}, false); ok {
		t.Error("expected no grid for an empty header")
	}
}

func TestSumFirstNumericColumn(t *testing.T) {
	tests := []struct {
		name   string
		grid   Grid
		sum    float64
		column string
		ok     bool
	}{
		{
			name:   "leftmost numeric column wins",
			grid:   Grid{Header: []string{"id", "amount", "tag"}, Rows: [][]string{{"id", "3", "x"}, {"a", "7", "y"}}},
			sum:    10,
			column: "amount",
			ok:     true,
		},
		{
			name:   "later numeric column ignored",
			grid:   Grid{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3", "4"}}},
			sum:    4,
			column: "a",
			ok:     true,
		},
		{
			name:   "non numeric cells skipped",
			grid:   Grid{Header: []string{"v"}, Rows: [][]string{{"$1,200"}, {"n/a"}, {"-0.5"}}},
			sum:    1199.5,
			column: "v",
			ok:     true,
		},
		{
			name: "no numeric column",
			grid: Grid{Header: []string{"a", "b"}, Rows: [][]string{{"x", "y"}}},
		},
		{
			name: "header only",
			grid: Grid{Header: []string{"a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, col, ok := tt.grid.SumFirstNumericColumn()
			if ok != tt.ok || sum != tt.sum || col != tt.column {
				t.Errorf("got (%v, %q, %v), want (%v, %q, %v)", sum, col, ok, tt.sum, tt.column, tt.ok)
			}
		})
	}
}
