package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapResolver(values map[string]any) Resolver {
	return ResolverFunc(func(name string) (any, error) {
		if v, ok := values[name]; ok {
			return v, nil
		}
		return nil, ErrUnresolved
	})
}

func eval(t *testing.T, text string, r Resolver) any {
	t.Helper()
	v, err := NewEvaluator().Value(MustParse(text), r)
	require.NoError(t, err)
	return v
}

func TestEvaluator_Arithmetic(t *testing.T) {
	assert.Equal(t, 3.0, eval(t, "1 + 2", nil))
	assert.Equal(t, 8.0, eval(t, "2 ^ 3", nil))
	assert.Equal(t, 2.5, eval(t, "5 / 2", nil))
	assert.Equal(t, -4.0, eval(t, "-(2 * 2)", nil))
	assert.Equal(t, "ab", eval(t, `"a" + "b"`, nil))
	assert.Equal(t, true, eval(t, "2 > 1", nil))
	assert.Equal(t, "big", eval(t, `3 > 2 ? "big" : "small"`, nil))
}

func TestEvaluator_Units(t *testing.T) {
	v := eval(t, "10 mm + 1 cm", nil)
	assert.Equal(t, Quantity{Value: 20, Unit: Unit{Length: 1}}, v)

	v = eval(t, "2 m * 3 m", nil)
	assert.Equal(t, Quantity{Value: 6e6, Unit: Unit{Length: 2}}, v)

	// length over length collapses to a plain number
	assert.Equal(t, 2.0, eval(t, "2 cm / 10 mm", nil))

	v = eval(t, "sqrt(4 mm^2)", nil)
	assert.Equal(t, Quantity{Value: 2, Unit: Unit{Length: 1}}, v)

	assert.InDelta(t, 0.5, eval(t, "sin(30 deg)", nil), 1e-12)
	assert.Equal(t, 5.0, eval(t, "unitless(5 mm)", nil))

	_, err := NewEvaluator().Value(MustParse("1 mm + 1 kg"), nil)
	assert.ErrorIs(t, err, ErrUnitMismatch)

	_, err = NewEvaluator().Value(MustParse("1 / 0"), nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEvaluator_UnitIdentifier(t *testing.T) {
	v := eval(t, "A1 * mm", mapResolver(map[string]any{"A1": 3.0}))
	assert.Equal(t, Quantity{Value: 3, Unit: Unit{Length: 1}}, v)
}

func TestEvaluator_References(t *testing.T) {
	r := mapResolver(map[string]any{
		"A1":    21.0,
		"Width": Quantity{Value: 10, Unit: Unit{Length: 1}},
		"A1:A3": []any{1.0, 2.0, 3.0},
	})
	assert.Equal(t, 42.0, eval(t, "A1 * 2", r))
	assert.Equal(t, Quantity{Value: 20, Unit: Unit{Length: 1}}, eval(t, "Width * 2", r))
	assert.Equal(t, 6.0, eval(t, "sum(A1:A3)", r))
	assert.Equal(t, 3.0, eval(t, "max(A1:A3)", r))
	assert.Equal(t, 21.0, eval(t, "dbind(A1)", r))

	_, err := NewEvaluator().Value(MustParse("Missing + 1"), r)
	assert.True(t, errors.Is(err, ErrUnresolved))
}

func TestEvaluator_ListAndMap(t *testing.T) {
	r := mapResolver(map[string]any{"A1": 1.0})
	assert.Equal(t, []any{1.0, 2.0}, eval(t, "[A1, A1 + 1]", r))
	assert.Equal(t, map[string]any{"step": 1.0, "unit": "mm"}, eval(t, `{"step": A1, "unit": "mm"}`, r))
}

func TestEvaluator_Function(t *testing.T) {
	v := eval(t, "def twice(x): /*Double it*/ x * 2", mapResolver(nil))
	fn, ok := v.(Invocable)
	require.True(t, ok)
	assert.Equal(t, "Double it", fn.Doc())

	out, err := fn.Call(21)
	require.NoError(t, err)
	assert.Equal(t, 42.0, out)

	_, err = fn.Call()
	assert.Error(t, err)
}

func TestEvaluator_CallsResolvedInvocable(t *testing.T) {
	twice := MustParse("def twice(x): x * 2")
	fn, err := Value(twice, nil)
	require.NoError(t, err)
	r := mapResolver(map[string]any{"twice": fn})
	assert.Equal(t, []string{"twice"}, References(MustParse("twice(4)")))
	assert.Equal(t, 8.0, eval(t, "twice(4)", r))
}

func TestEvaluator_CachesPrograms(t *testing.T) {
	ev := NewEvaluator()
	e := MustParse("1 + 1")
	_, err := ev.Value(e, nil)
	require.NoError(t, err)
	_, ok := ev.cache.Load("1 + 1")
	assert.True(t, ok)
}

func TestFromValue(t *testing.T) {
	e, err := FromValue(2.0)
	require.NoError(t, err)
	assert.Equal(t, "2", e.Source())

	e, err = FromValue(Quantity{Value: 10, Unit: Unit{Length: 1}})
	require.NoError(t, err)
	assert.Equal(t, "10 mm", e.Source())

	e, err = FromValue([]any{1.0, "a"})
	require.NoError(t, err)
	assert.Equal(t, `[1, "a"]`, e.Source())

	e, err = FromValue(map[string]any{"b": true, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1, "b": true}`, e.Source())

	e, err = FromValue(nil)
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = FromValue(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestQuantity_String(t *testing.T) {
	q, err := NewQuantity(1, "in")
	require.NoError(t, err)
	assert.Equal(t, 25.4, q.Value)
	assert.Equal(t, "25.4 mm", q.String())
	assert.Equal(t, "25.40 mm", q.Format(2))
	assert.InDelta(t, 1.0, q.In(25.4), 1e-12)
}
