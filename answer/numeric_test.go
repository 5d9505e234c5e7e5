package answer

import (
	"math"
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		cell string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"  7 ", 7, true},
		{"$12.50", 12.5, true},
		{"€1,234.56", 1234.56, true},
		{"1 000 000", 1000000, true},
		{"-15", -15, true},
		{"-$3.25", -3.25, true},
		{"12%", 12, true},
		{"USD 99", 99, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{".", 0, false},
		{"1.2.3", 0, false},
		{"2024-01-05", 0, false},
	}

	for _, tt := range tests {
		got, ok := Coerce(tt.cell)
		if ok != tt.ok {
			t.Errorf("Coerce(%q) ok = %v, want %v", tt.cell, ok, tt.ok)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Coerce(%q) = %v, want %v", tt.cell, got, tt.want)
		}
	}
}

func TestNumbers(t *testing.T) {
	got := Numbers("Add 3 apples, 4.5 pears and .5 plums")
	want := []float64{3, 4.5, 0.5}
	if len(got) != len(want) {
		t.Fatalf("Numbers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Numbers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNumbers_SignOnlyOnDecimals(t *testing.T) {
	got := Numbers("range 3-4 and delta -1.5")
	want := []float64{3, 4, -1.5}
	if len(got) != len(want) {
		t.Fatalf("Numbers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Numbers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSumNumbers(t *testing.T) {
	sum, ok := SumNumbers("The sum of 10, 20 and 12.5")
	if !ok {
		t.Fatal("expected numbers to be found")
	}
	if sum != 42.5 {
		t.Errorf("SumNumbers() = %v, want 42.5", sum)
	}

	if _, ok := SumNumbers("no digits here"); ok {
		t.Error("expected ok=false for text without numbers")
	}
}
