package paramsheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Default sheet bounds: 16384 rows by 702 columns (A..ZZ).
const (
	DefaultMaxRows    = 16384
	DefaultMaxColumns = 702
)

// CellAddress identifies a cell by 0-based row and column. Addresses order
// row-major.
type CellAddress struct {
	Row int // 0-based row index
	Col int // 0-based column index
}

// NewAddress creates a CellAddress from 0-based row and column.
func NewAddress(row, col int) CellAddress {
	return CellAddress{Row: row, Col: col}
}

// ParseAddress parses a cell address such as "A1", "$B$5" or "zz10".
func ParseAddress(s string) (CellAddress, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "$", "")
	if s == "" {
		return CellAddress{}, fmt.Errorf("empty cell address")
	}
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return CellAddress{}, fmt.Errorf("invalid cell address: %q", s)
	}
	col, err := NameToCol(s[:i])
	if err != nil {
		return CellAddress{}, err
	}
	row, err := strconv.Atoi(s[i:])
	if err != nil || row < 1 || s[i] == '+' || s[i] == '-' {
		return CellAddress{}, fmt.Errorf("invalid row in cell address: %q", s)
	}
	return CellAddress{Row: row - 1, Col: col}, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) CellAddress {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// String formats the address in A1 notation.
func (a CellAddress) String() string {
	return ColToName(a.Col) + strconv.Itoa(a.Row+1)
}

// Less reports whether a sorts before b in row-major order.
func (a CellAddress) Less(b CellAddress) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// Compare returns -1, 0 or 1 in row-major order.
func (a CellAddress) Compare(b CellAddress) int {
	switch {
	case a == b:
		return 0
	case a.Less(b):
		return -1
	}
	return 1
}

// Offset returns the address moved by the given number of rows and columns.
func (a CellAddress) Offset(rows, cols int) CellAddress {
	return CellAddress{Row: a.Row + rows, Col: a.Col + cols}
}

// IsValid reports whether the address lies within the given bounds.
func (a CellAddress) IsValid(maxRows, maxCols int) bool {
	return a.Row >= 0 && a.Col >= 0 && a.Row < maxRows && a.Col < maxCols
}

// ColToName converts a 0-based column index to a column name.
// 0→"A", 25→"Z", 26→"AA"
func ColToName(col int) string {
	result := ""
	col++
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to a 0-based column index.
// "A"→0, "Z"→25, "AA"→26
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(name)
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %q", name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1, nil
}

// Range is a rectangular block of cells between two corners, inclusive.
type Range struct {
	From CellAddress
	To   CellAddress
}

// NewRange creates a Range, normalizing the corners so From is top-left.
func NewRange(a, b CellAddress) Range {
	return Range{
		From: CellAddress{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)},
		To:   CellAddress{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)},
	}
}

// ParseRange parses "A1:C5". A single address yields a one-cell range.
func ParseRange(s string) (Range, error) {
	first, last, found := strings.Cut(strings.TrimSpace(s), ":")
	a, err := ParseAddress(first)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if !found {
		return Range{From: a, To: a}, nil
	}
	b, err := ParseAddress(last)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	return NewRange(a, b), nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String formats the range as "A1:C5".
func (r Range) String() string {
	return r.From.String() + ":" + r.To.String()
}

// Rows returns the number of rows in the range.
func (r Range) Rows() int { return r.To.Row - r.From.Row + 1 }

// Cols returns the number of columns in the range.
func (r Range) Cols() int { return r.To.Col - r.From.Col + 1 }

// Contains reports whether a lies within the range.
func (r Range) Contains(a CellAddress) bool {
	return a.Row >= r.From.Row && a.Row <= r.To.Row && a.Col >= r.From.Col && a.Col <= r.To.Col
}

// Addresses lists the addresses of the range in row-major order.
func (r Range) Addresses() []CellAddress {
	out := make([]CellAddress, 0, r.Rows()*r.Cols())
	for row := r.From.Row; row <= r.To.Row; row++ {
		for col := r.From.Col; col <= r.To.Col; col++ {
			out = append(out, CellAddress{Row: row, Col: col})
		}
	}
	return out
}
