package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		text string
		kind Kind
	}{
		{"42", KindNumber},
		{"-1.5", KindNumber},
		{"10 mm", KindNumber},
		{`"abc"`, KindString},
		{"true", KindBool},
		{"[1, 2, 3]", KindList},
		{`{"a": 1, "b": 2}`, KindMap},
		{"dbind(A1)", KindBinding},
		{"dbind(Box.Length)", KindBinding},
		{"def twice(x): x * 2", KindFunction},
		{"A1 + 2", KindFormula},
		{"1 + 1", KindFormula},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, e.Kind())
		})
	}
}

func TestParse_KeepsSourceText(t *testing.T) {
	e := MustParse("1 + 1")
	assert.Equal(t, "1 + 1", e.Source())

	e = MustParse("10mm")
	assert.Equal(t, "10mm", e.Source())
	n := e.(*NumberExpr)
	assert.Equal(t, 10.0, n.Quantity.Value)
	assert.Equal(t, Unit{Length: 1}, n.Quantity.Unit)
}

func TestParse_Comment(t *testing.T) {
	e, err := Parse("/*note*/ A1 * 2")
	require.NoError(t, err)
	assert.Equal(t, "note", e.Comment())
	assert.Equal(t, "A1 * 2", e.Source())
	assert.Equal(t, "/*note*/A1 * 2", Text(e))
}

func TestParse_ListItems(t *testing.T) {
	e := MustParse(`[dbind(B1), {"step": 1, "unit": "mm"}]`)
	l, ok := AsList(e)
	require.True(t, ok)
	require.Equal(t, 2, l.Len())
	assert.True(t, IsDoubleBinding(l.Items[0]))
	m, ok := l.Items[1].(*MapExpr)
	require.True(t, ok)
	unit, ok := m.Get("unit")
	require.True(t, ok)
	assert.Equal(t, "mm", unit.(*StringExpr).Text)
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{"", "1 +", "42abc", "(1"} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrSyntax, text)
	}
}

func TestTryParseNumber(t *testing.T) {
	e := TryParseNumber("42")
	require.NotNil(t, e)
	assert.Equal(t, 42.0, e.(*NumberExpr).Quantity.Value)
	assert.Equal(t, "42", e.Source())

	e = TryParseNumber("10 mm")
	require.NotNil(t, e)
	assert.Equal(t, KindNumber, e.Kind())

	e = TryParseNumber("1/2 in")
	require.NotNil(t, e)
	v, err := Value(e, nil)
	require.NoError(t, err)
	assert.InDelta(t, 12.7, v.(Quantity).Value, 1e-9)

	assert.Nil(t, TryParseNumber("42abc"))
	assert.Nil(t, TryParseNumber(""))
	assert.Nil(t, TryParseNumber("abc"))
	assert.Nil(t, TryParseNumber("1+1"))
	assert.Nil(t, TryParseNumber("inf"))
}
