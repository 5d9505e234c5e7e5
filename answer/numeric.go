package answer

import (
	"regexp"
	"strconv"
	"strings"
)

// Coerce turns a noisy table cell into a number by dropping everything except
// digits, '.' and '-', then parsing what is left. Currency symbols and
// thousands separators vanish ("$1,234.50" → 1234.5); a leading minus
// survives ("-12" → -12). Cells with no digits, or whose residue is not a
// valid float ("1.2.3", "2024-01-05"), do not coerce.
//
// The transformation is lossy: "(5)" coerces to 5 and "1,5" to 15.
func Coerce(cell string) (float64, bool) {
	var b strings.Builder
	b.Grow(len(cell))
	digits := false
	for _, r := range cell {
		switch {
		case r >= '0' && r <= '9':
			digits = true
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	if !digits {
		return 0, false
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// numberRe matches decimal literals with an optional sign, or bare integers.
// A minus before an integer without a fractional part is not captured, so
// dates and ranges ("2024-01-05", "3-4") read as separate positive numbers.
var numberRe = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// Numbers returns every integer or decimal literal in text, in order.
func Numbers(text string) []float64 {
	matches := numberRe.FindAllString(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SumNumbers adds every literal Numbers finds. ok is false when text holds
// no numbers at all.
func SumNumbers(text string) (sum float64, ok bool) {
	nums := Numbers(text)
	if len(nums) == 0 {
		return 0, false
	}
	for _, n := range nums {
		sum += n
	}
	return sum, true
}
