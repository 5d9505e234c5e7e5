package tabular

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// lineTolerance is how far apart (in user-space units) two text runs may sit
// vertically and still belong to the same table row.
const lineTolerance = 2.0

var cellGap = regexp.MustCompile(`\t|\s{2,}`)

// PDFTables opens a PDF and returns a lazy sequence of the tables found on
// its pages, in page order. A table is a run of at least two consecutive text
// lines with the same number of cells (two or more); its first line is the
// header. Each positioned text run is one cell, and a run containing a tab or
// a wide gap is split there.
//
// Pages that fail to extract are skipped. The sequence is single-use.
func PDFTables(data []byte) (iter.Seq[Grid], error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("tabular: read pdf: %w", err)
	}

	consumed := false
	return func(yield func(Grid) bool) {
		if consumed {
			return
		}
		consumed = true

		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
			if err != nil || r == nil {
				continue
			}
			content, err := io.ReadAll(r)
			if err != nil {
				continue
			}
			for _, g := range tablesFromContent(content) {
				if !yield(g) {
					return
				}
			}
		}
	}, nil
}

// tablesFromContent interprets one decoded page content stream.
func tablesFromContent(content []byte) []Grid {
	lines := groupLines(textRuns(content))

	var (
		grids []Grid
		block [][]string
	)
	flush := func() {
		if len(block) >= 2 {
			if g, ok := NewGrid(block, false); ok {
				grids = append(grids, g)
			}
		}
		block = nil
	}
	for _, cells := range lines {
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(block) > 0 && len(block[0]) != len(cells) {
			flush()
		}
		block = append(block, cells)
	}
	flush()
	return grids
}

// textRun is a string shown at one text-space origin.
type textRun struct {
	x, y float64
	text string
}

// groupLines clusters runs into rows top to bottom and splits each row into
// cells left to right.
func groupLines(runs []textRun) [][]string {
	if len(runs) == 0 {
		return nil
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if math.Abs(runs[i].y-runs[j].y) > lineTolerance {
			return runs[i].y > runs[j].y
		}
		return runs[i].x < runs[j].x
	})

	var (
		lines [][]string
		cur   []string
		lineY = runs[0].y
	)
	for _, r := range runs {
		if math.Abs(r.y-lineY) > lineTolerance {
			if len(cur) > 0 {
				lines = append(lines, cur)
			}
			cur = nil
			lineY = r.y
		}
		for _, part := range cellGap.Split(r.text, -1) {
			if part = strings.TrimSpace(part); part != "" {
				cur = append(cur, part)
			}
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

// textRuns walks a content stream and records every text-showing operator
// with the position of the text matrix when it ran. Consecutive shows with
// no positioning operator in between are merged into one run.
func textRuns(content []byte) []textRun {
	var (
		st       textState
		runs     []textRun
		operands []token
		marks    []int
		moved    = true
	)
	st.reset()

	show := func(s string) {
		if s == "" {
			return
		}
		x, y := st.tm[4], st.tm[5]
		if !moved && len(runs) > 0 {
			runs[len(runs)-1].text += s
			return
		}
		runs = append(runs, textRun{x: x, y: y, text: s})
		moved = false
	}

	lx := &lexer{data: content}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayOpen:
			marks = append(marks, len(operands))
			continue
		case tokArrayClose:
			if len(marks) == 0 {
				continue
			}
			start := marks[len(marks)-1]
			marks = marks[:len(marks)-1]
			items := append([]token(nil), operands[start:]...)
			operands = append(operands[:start], token{kind: tokArray, items: items})
			continue
		case tokOperator:
		default:
			operands = append(operands, tok)
			continue
		}

		switch tok.str {
		case "BT":
			st.reset()
			moved = true
		case "Td":
			if n, ok := numbers(operands, 2); ok {
				st.translate(n[0], n[1])
				moved = true
			}
		case "TD":
			if n, ok := numbers(operands, 2); ok {
				st.leading = -n[1]
				st.translate(n[0], n[1])
				moved = true
			}
		case "Tm":
			if n, ok := numbers(operands, 6); ok {
				copy(st.tlm[:], n)
				st.tm = st.tlm
				moved = true
			}
		case "TL":
			if n, ok := numbers(operands, 1); ok {
				st.leading = n[0]
			}
		case "T*":
			st.translate(0, -st.leading)
			moved = true
		case "Tj":
			show(lastString(operands))
		case "'", "\"":
			st.translate(0, -st.leading)
			moved = true
			show(lastString(operands))
		case "TJ":
			if len(operands) > 0 && operands[len(operands)-1].kind == tokArray {
				show(joinTJ(operands[len(operands)-1].items))
			}
		case "ID":
			lx.skipInlineImage()
		}
		operands = operands[:0]
		marks = marks[:0]
	}
	return runs
}

type textState struct {
	tm, tlm [6]float64
	leading float64
}

func (s *textState) reset() {
	s.tlm = [6]float64{1, 0, 0, 1, 0, 0}
	s.tm = s.tlm
}

// translate premultiplies the line matrix by a translation of (tx, ty).
func (s *textState) translate(tx, ty float64) {
	a, b, c, d, e, f := s.tlm[0], s.tlm[1], s.tlm[2], s.tlm[3], s.tlm[4], s.tlm[5]
	s.tlm = [6]float64{a, b, c, d, tx*a + ty*c + e, tx*b + ty*d + f}
	s.tm = s.tlm
}

func numbers(operands []token, n int) ([]float64, bool) {
	if len(operands) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, tok := range operands[len(operands)-n:] {
		if tok.kind != tokNumber {
			return nil, false
		}
		out[i] = tok.num
	}
	return out, true
}

func lastString(operands []token) string {
	if len(operands) == 0 || operands[len(operands)-1].kind != tokString {
		return ""
	}
	return operands[len(operands)-1].str
}

// joinTJ concatenates the strings of a TJ array. A kerning adjustment wide
// enough to read as a word break becomes a space.
func joinTJ(items []token) string {
	var b strings.Builder
	for _, it := range items {
		switch it.kind {
		case tokString:
			b.WriteString(it.str)
		case tokNumber:
			if it.num <= -200 {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

// ── content stream lexer ──

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokOperator
	tokArrayOpen
	tokArrayClose
	tokArray
	tokDict
)

type token struct {
	kind  tokenKind
	num   float64
	str   string
	items []token
}

type lexer struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) next() (token, bool) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.data) {
		return token{}, false
	}

	c := l.data[l.pos]
	switch c {
	case '(':
		l.pos++
		return token{kind: tokString, str: l.literalString()}, true
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return token{kind: tokDict}, true
		}
		l.pos++
		return token{kind: tokString, str: l.hexString()}, true
	case '>':
		l.pos++
		if l.pos < len(l.data) && l.data[l.pos] == '>' {
			l.pos++
		}
		return token{kind: tokDict}, true
	case '[':
		l.pos++
		return token{kind: tokArrayOpen}, true
	case ']':
		l.pos++
		return token{kind: tokArrayClose}, true
	case '{', '}', ')':
		l.pos++
		return l.next()
	case '/':
		l.pos++
		return token{kind: tokName, str: l.regular()}, true
	}

	word := l.regular()
	if word == "" {
		l.pos++
		return l.next()
	}
	if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			return token{kind: tokNumber, num: f}, true
		}
	}
	return token{kind: tokOperator, str: word}, true
}

// literalString reads a balanced (...) string; the opening paren is consumed.
func (l *lexer) literalString() string {
	var b strings.Builder
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return b.String()
			}
			b.WriteByte(c)
		case '\\':
			if l.pos >= len(l.data) {
				return b.String()
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					b.WriteByte(byte(v))
				} else {
					b.WriteByte(e)
				}
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// hexString reads a <...> string; the opening bracket is consumed.
func (l *lexer) hexString() string {
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		c := l.data[l.pos]
		if !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return string(out)
}

// skipInlineImage advances past the binary payload of an inline image, up
// to and including its EI operator.
func (l *lexer) skipInlineImage() {
	for i := l.pos; i+2 <= len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		before := i == 0 || isSpace(l.data[i-1])
		after := i+2 == len(l.data) || isSpace(l.data[i+2])
		if before && after {
			l.pos = i + 2
			return
		}
	}
	l.pos = len(l.data)
}
