package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSimple(t *testing.T) {
	tests := []struct {
		text          string
		simple        bool
		noArithmetics bool
	}{
		{"42", true, true},
		{"10 mm", true, true},
		{"-3", true, true},
		{"1/2", true, true},
		{"-(1/2)", true, true},
		{"1 + 1", true, false},
		{"2 * 3 mm", true, false},
		{"true", true, false},
		{"A1 + 1", false, false},
		{"sqrt(4)", false, false},
		{`"text"`, false, false},
		{"[1, 2]", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := MustParse(tt.text)
			assert.Equal(t, tt.simple, IsSimple(e, false))
			assert.Equal(t, tt.noArithmetics, IsSimple(e, true))
		})
	}
}

func TestReduce(t *testing.T) {
	assert.Equal(t, "1 + 2", Reduce(MustParse("((1 + 2))")).Source())
	assert.Equal(t, "(1) + (2)", Reduce(MustParse("(1) + (2)")).Source())

	e := MustParse("(A1)")
	assert.Same(t, e, Reduce(e), "non-simple expressions are untouched")
	assert.Nil(t, Reduce(nil))
}

func TestReferences(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"A1 + B2 * 2", []string{"A1", "B2"}},
		{"sum(A1:A3) + Width", []string{"A1:A3", "Width"}},
		{"Box.Length + 1 mm", []string{"Box"}},
		{"sqrt(C3)", []string{"C3"}},
		{"let x = A1; x * 2", []string{"A1"}},
		{"[A1, {\"k\": B1}]", []string{"A1", "B1"}},
		{"dbind(Box.Length)", []string{"Box"}},
		{"def scale(x): x * Factor", []string{"Factor"}},
		{"A1 + B2 * mm", []string{"A1", "B2"}},
		{`"A1"`, []string{}},
		{"42", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, References(MustParse(tt.text)))
		})
	}
}

func TestRenameReferences(t *testing.T) {
	rename := func(ref string) (string, bool) {
		if ref == "A1" {
			return "C5", true
		}
		return "", false
	}

	e := RenameReferences(MustParse("/*note*/ A1 + B1 + sum(A1:A3)"), rename)
	assert.Equal(t, "C5 + B1 + sum(C5:A3)", e.Source())
	assert.Equal(t, "note", e.Comment())

	e = RenameReferences(MustParse("Box.A1 + A1"), rename)
	assert.Equal(t, "Box.A1 + C5", e.Source(), "member names are not references")

	e = RenameReferences(MustParse("[A1, 2]"), rename)
	assert.Equal(t, "[C5, 2]", e.Source())
	assert.Equal(t, []string{"C5"}, References(e))

	e = RenameReferences(MustParse("dbind(A1)"), rename)
	assert.Equal(t, "dbind(C5)", e.Source())

	orig := MustParse("Width * 2")
	e = RenameReferences(orig, rename)
	assert.Equal(t, "Width * 2", e.Source())

	n := MustParse("5")
	assert.NotSame(t, n, RenameReferences(n, rename))
	assert.Nil(t, RenameReferences(nil, rename))
}

func TestRestorable(t *testing.T) {
	assert.True(t, Restorable(MustParse("[1, {\"k\": 2}]")))
	assert.True(t, Restorable(MustParse("def twice(x): x * 2")))

	fn := &CallableExpr{Fn: funcInvocable(func(args ...any) (any, error) { return nil, nil })}
	assert.False(t, Restorable(fn))
	assert.False(t, Restorable(NewList(NewNumber(Quantity{Value: 1}), fn)))
	assert.False(t, Restorable(&MapExpr{Keys: []string{"cb"}, Values: []Expression{fn}}))
}
