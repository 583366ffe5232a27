package paramsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/paramsheet/expression"
)

// setCell sets the content of addr and returns the cell.
func setCell(t *testing.T, s *PropertySheet, addr, content string) *Cell {
	t.Helper()
	a := MustParseAddress(addr)
	require.NoError(t, s.SetContent(a, content))
	return s.Cell(a)
}

func valueOf(t *testing.T, s *PropertySheet, addr string) any {
	t.Helper()
	v, err := s.Value(MustParseAddress(addr))
	require.NoError(t, err)
	return v
}

func TestSheet_FormulaKeptVerbatim(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "=1+1")

	assert.Equal(t, "=1+1", c.StringContent())
	assert.Equal(t, 2.0, valueOf(t, s, "A1"))
	assert.True(t, c.IsUsedFor(UsedExpression))
}

func TestSheet_ContentKinds(t *testing.T) {
	s := NewSheet()

	c := setCell(t, s, "A1", "hello")
	assert.IsType(t, &expression.StringExpr{}, c.Expression())
	assert.Equal(t, "hello", c.StringContent())

	c = setCell(t, s, "A2", "'=not a formula")
	assert.Equal(t, "=not a formula", valueOf(t, s, "A2"))
	assert.Equal(t, "'=not a formula", c.StringContent())

	c = setCell(t, s, "A3", "'12")
	assert.Equal(t, "12", valueOf(t, s, "A3"))
	assert.Equal(t, "'12", c.StringContent())

	c = setCell(t, s, "A4", "12.5")
	assert.IsType(t, &expression.NumberExpr{}, c.Expression())
	assert.Equal(t, 12.5, valueOf(t, s, "A4"))
	assert.Equal(t, "12.5", c.StringContent())

	c = setCell(t, s, "A5", "10 mm")
	assert.Equal(t, expression.Quantity{Value: 10, Unit: expression.Unit{Length: 1}}, valueOf(t, s, "A5"))
	assert.Equal(t, "10 mm", c.StringContent())
}

func TestSheet_EmptyContentRemovesCell(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "B2", "1")
	require.NotNil(t, s.Cell(MustParseAddress("B2")))

	require.NoError(t, s.SetContent(MustParseAddress("B2"), ""))
	assert.Nil(t, s.Cell(MustParseAddress("B2")))
	assert.Empty(t, s.UsedCells())
}

func TestSheet_ParseException(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "=1+")

	assert.True(t, c.HasParseException())
	assert.Equal(t, "=1+", c.StringContent())
	_, err := s.Value(MustParseAddress("A1"))
	assert.ErrorIs(t, err, expression.ErrUnresolved)

	setCell(t, s, "A1", "=1+2")
	assert.False(t, c.HasException())
	assert.Equal(t, 3.0, valueOf(t, s, "A1"))
}

func TestSheet_References(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "10")
	setCell(t, s, "B1", "=A1 * 2")
	assert.Equal(t, 20.0, valueOf(t, s, "B1"))

	setCell(t, s, "A1", "5")
	assert.True(t, s.IsDirty(MustParseAddress("B1")))
	assert.Equal(t, 10.0, valueOf(t, s, "B1"))

	assert.Equal(t, []CellAddress{MustParseAddress("B1")}, s.Dependents(MustParseAddress("A1")))
	assert.Equal(t, []CellAddress{MustParseAddress("A1")}, s.Precedents(MustParseAddress("B1")))
}

func TestSheet_SameContentKeepsOneEdge(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "B1", "=A1 + 1")
	setCell(t, s, "B1", "=A1 + 1")

	assert.Equal(t, []string{"A1"}, s.graph.references(MustParseAddress("B1")))
	assert.Len(t, s.graph.named["A1"], 1)
	assert.Equal(t, []CellAddress{MustParseAddress("B1")}, s.Dependents(MustParseAddress("A1")))
	assert.Equal(t, 2.0, valueOf(t, s, "B1"))
}

func TestSheet_AbsoluteReferencesShareEdges(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "B1", "=$A$1 + A1")

	assert.Equal(t, []CellAddress{MustParseAddress("A1")}, s.Precedents(MustParseAddress("B1")))
	assert.Equal(t, 2.0, valueOf(t, s, "B1"))
}

func TestSheet_RangeSum(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "A2", "2")
	setCell(t, s, "A4", "4")
	setCell(t, s, "B1", "=sum(A1:A4)")

	assert.Equal(t, 7.0, valueOf(t, s, "B1"))

	setCell(t, s, "A3", "3")
	assert.True(t, s.IsDirty(MustParseAddress("B1")))
	assert.Equal(t, 10.0, valueOf(t, s, "B1"))
}

func TestSheet_Cycle(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "=B1 + 1")
	setCell(t, s, "B1", "=A1 + 1")

	_, err := s.Value(MustParseAddress("A1"))
	assert.ErrorIs(t, err, ErrCycle)
	assert.True(t, s.Cell(MustParseAddress("A1")).HasResolveException())
	assert.True(t, s.Cell(MustParseAddress("B1")).HasResolveException())
}

func TestSheet_SelfReference(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "=A1 + 1")

	_, err := s.Value(MustParseAddress("A1"))
	assert.ErrorIs(t, err, ErrCycle)
}

func TestSheet_UnresolvedName(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "=Missing + 1")

	_, err := s.Value(MustParseAddress("A1"))
	assert.ErrorIs(t, err, expression.ErrUnresolved)
	assert.True(t, c.HasResolveException())
	assert.Equal(t, EditNormal, c.EditMode())

	setCell(t, s, "A2", "1")
	require.NoError(t, s.SetAlias(MustParseAddress("A2"), "Missing", false))
	assert.Equal(t, 2.0, valueOf(t, s, "A1"))
	assert.False(t, c.HasException())
}

func TestSheet_Recompute(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "2")
	setCell(t, s, "A2", "=A1 * 3")
	setCell(t, s, "A3", "=A2 + A1")

	s.Recompute()
	for _, a := range s.UsedCells() {
		assert.False(t, s.IsDirty(a), a.String())
	}
	assert.Equal(t, 8.0, valueOf(t, s, "A3"))
}

func TestSheet_OutOfBounds(t *testing.T) {
	s := NewSheet(WithBounds(10, 5))
	_, err := s.CreateCell(NewAddress(10, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.CreateCell(NewAddress(0, 5))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.CreateCell(NewAddress(9, 4))
	assert.NoError(t, err)
}

func TestSheet_InsertRows(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "A2", "=A1 + 1")
	require.NoError(t, s.SetAlias(MustParseAddress("A1"), "Base", false))

	s.InsertRows(0, 1)

	assert.Nil(t, s.Cell(MustParseAddress("A1")))
	assert.Equal(t, "=A2 + 1", s.Cell(MustParseAddress("A3")).StringContent())
	assert.Equal(t, MustParseAddress("A2"), s.CellByAlias("Base").Address())
	assert.Equal(t, 2.0, valueOf(t, s, "A3"))
}

func TestSheet_RemoveRows(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "A2", "2")
	setCell(t, s, "A3", "=A1 + A2")

	s.RemoveRows(0, 1)

	c := s.Cell(MustParseAddress("A2"))
	require.NotNil(t, c)
	assert.Equal(t, "=_REF_A1 + A1", c.StringContent())
	_, err := s.Value(MustParseAddress("A2"))
	assert.ErrorIs(t, err, expression.ErrUnresolved)
}

func TestSheet_InsertAndRemoveColumns(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "3")
	setCell(t, s, "B1", "=A1 * 2")

	s.InsertColumns(1, 2)
	assert.Equal(t, "=A1 * 2", s.Cell(MustParseAddress("D1")).StringContent())

	s.InsertColumns(0, 1)
	assert.Equal(t, "=B1 * 2", s.Cell(MustParseAddress("E1")).StringContent())

	s.RemoveColumns(2, 2)
	assert.Equal(t, "=B1 * 2", s.Cell(MustParseAddress("C1")).StringContent())
	assert.Equal(t, 6.0, valueOf(t, s, "C1"))
}

func TestSheet_MoveCell(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "4")
	setCell(t, s, "B1", "=A1 + 1")
	require.NoError(t, s.SetAlias(MustParseAddress("A1"), "Four", false))

	require.NoError(t, s.MoveCell(MustParseAddress("A1"), MustParseAddress("C3")))

	assert.Nil(t, s.Cell(MustParseAddress("A1")))
	assert.Equal(t, "=C3 + 1", s.Cell(MustParseAddress("B1")).StringContent())
	assert.Equal(t, MustParseAddress("C3"), s.CellByAlias("Four").Address())
	assert.Equal(t, 5.0, valueOf(t, s, "B1"))

	err := s.MoveCell(MustParseAddress("Z9"), MustParseAddress("A1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSheet_CopyCell(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "4")
	src := setCell(t, s, "B1", "=A1 + 1")
	src.SetStyle([]string{"bold"})
	src.SetMark(true)
	require.NoError(t, s.SetAlias(MustParseAddress("B1"), "Five", false))
	setCell(t, s, "C1", "old")

	require.NoError(t, s.CopyCell(MustParseAddress("B1"), MustParseAddress("C1")))

	dst := s.Cell(MustParseAddress("C1"))
	require.NotNil(t, dst)
	assert.Equal(t, "=A1 + 1", dst.StringContent())
	assert.Equal(t, []string{"bold"}, dst.Style())
	assert.Empty(t, dst.Alias())
	assert.False(t, dst.IsMarked())
	assert.Equal(t, 5.0, valueOf(t, s, "C1"))
	assert.NotSame(t, src.Expression(), dst.Expression())
	assert.Equal(t, MustParseAddress("B1"), s.CellByAlias("Five").Address())

	err := s.CopyCell(MustParseAddress("Z9"), MustParseAddress("A1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSheet_AddressOf(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "B2", "1")
	require.NoError(t, s.SetAlias(MustParseAddress("B2"), "Depth", false))

	a, ok := s.AddressOf("Depth")
	assert.True(t, ok)
	assert.Equal(t, MustParseAddress("B2"), a)

	a, ok = s.AddressOf("c3")
	assert.True(t, ok)
	assert.Equal(t, MustParseAddress("C3"), a)

	_, ok = s.AddressOf("nothing")
	assert.False(t, ok)
}

func TestSheet_UsedRange(t *testing.T) {
	s := NewSheet()
	_, ok := s.UsedRange()
	assert.False(t, ok)

	setCell(t, s, "B3", "1")
	setCell(t, s, "D2", "1")
	r, ok := s.UsedRange()
	require.True(t, ok)
	assert.Equal(t, "B2:D3", r.String())
}
