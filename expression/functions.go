package expression

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

type builtinFunc func(params ...any) (any, error)

// functions are registered with every compiled program. Names shared with
// expr builtins (abs, min, max, ...) override them with unit-aware versions.
var functions = map[string]builtinFunc{
	"qty":      fnQty,
	"dbind":    fnIdentity,
	"tuple":    fnTuple,
	"unitless": fnUnitless,
	"sqrt":     fnSqrt,
	"pow":      binary(pow),
	"hypot":    fnHypot,
	"sin":      trig(math.Sin),
	"cos":      trig(math.Cos),
	"tan":      trig(math.Tan),
	"atan2":    fnAtan2,
	"abs":      keepUnit(math.Abs),
	"round":    keepUnit(math.Round),
	"floor":    keepUnit(math.Floor),
	"ceil":     keepUnit(math.Ceil),
	"min":      extreme("<"),
	"max":      extreme(">"),
	"sum":      fnSum,

	"_add": binary(add),
	"_sub": binary(sub),
	"_mul": binary(mul),
	"_div": binary(div),
	"_mod": binary(mod),
	"_pow": binary(pow),
	"_neg": fnNeg,
	"_lt":  comparison("<"),
	"_le":  comparison("<="),
	"_gt":  comparison(">"),
	"_ge":  comparison(">="),
	"_eq":  fnEqual(true),
	"_ne":  fnEqual(false),
}

var functionOptions = func() []expr.Option {
	opts := make([]expr.Option, 0, len(functions))
	for name, fn := range functions {
		opts = append(opts, expr.Function(name, fn))
	}
	return opts
}()

// isFunctionName reports whether name is a registered function, so calls to
// it are not treated as references.
func isFunctionName(name string) bool {
	_, ok := functions[name]
	return ok
}

func arity(name string, params []any, n int) error {
	if len(params) != n {
		return fmt.Errorf("%s: expects %d arguments, got %d", name, n, len(params))
	}
	return nil
}

func binary(op func(a, b any) (any, error)) builtinFunc {
	return func(params ...any) (any, error) {
		if err := arity("operator", params, 2); err != nil {
			return nil, err
		}
		return op(params[0], params[1])
	}
}

func comparison(op string) builtinFunc {
	return func(params ...any) (any, error) {
		if err := arity(op, params, 2); err != nil {
			return nil, err
		}
		return compare(op, params[0], params[1])
	}
}

func fnEqual(want bool) builtinFunc {
	return func(params ...any) (any, error) {
		if err := arity("==", params, 2); err != nil {
			return nil, err
		}
		return equal(params[0], params[1]) == want, nil
	}
}

func fnNeg(params ...any) (any, error) {
	if err := arity("-", params, 1); err != nil {
		return nil, err
	}
	return neg(params[0])
}

func fnQty(params ...any) (any, error) {
	if err := arity("qty", params, 2); err != nil {
		return nil, err
	}
	n, ok := AsQuantity(params[0])
	unit, okU := params[1].(string)
	if !ok || !okU || !n.Unit.IsEmpty() {
		return nil, fmt.Errorf("%w: qty(%v, %v)", ErrOperand, params[0], params[1])
	}
	q, err := NewQuantity(n.Value, unit)
	if err != nil {
		return nil, err
	}
	return quantityResult(q), nil
}

func fnIdentity(params ...any) (any, error) {
	if err := arity("dbind", params, 1); err != nil {
		return nil, err
	}
	return params[0], nil
}

func fnTuple(params ...any) (any, error) {
	return append([]any{}, params...), nil
}

func fnUnitless(params ...any) (any, error) {
	if err := arity("unitless", params, 1); err != nil {
		return nil, err
	}
	q, ok := AsQuantity(params[0])
	if !ok {
		return nil, fmt.Errorf("%w: unitless(%T)", ErrOperand, params[0])
	}
	return q.Value, nil
}

func fnSqrt(params ...any) (any, error) {
	if err := arity("sqrt", params, 1); err != nil {
		return nil, err
	}
	q, ok := AsQuantity(params[0])
	if !ok {
		return nil, fmt.Errorf("%w: sqrt(%T)", ErrOperand, params[0])
	}
	u := q.Unit
	if u.Length%2 != 0 || u.Mass%2 != 0 || u.Time%2 != 0 || u.Angle%2 != 0 {
		return nil, fmt.Errorf("%w: sqrt of %s", ErrUnitMismatch, u)
	}
	return quantityResult(Quantity{
		Value: math.Sqrt(q.Value),
		Unit:  Unit{u.Length / 2, u.Mass / 2, u.Time / 2, u.Angle / 2},
	}), nil
}

func fnHypot(params ...any) (any, error) {
	if err := arity("hypot", params, 2); err != nil {
		return nil, err
	}
	x, y, err := operands("hypot", params[0], params[1])
	if err != nil {
		return nil, err
	}
	if x.Unit != y.Unit {
		return nil, fmt.Errorf("%w: hypot(%s, %s)", ErrUnitMismatch, x, y)
	}
	return quantityResult(Quantity{math.Hypot(x.Value, y.Value), x.Unit}), nil
}

// trig functions take angles in degrees, with or without the deg unit.
func trig(fn func(float64) float64) builtinFunc {
	return func(params ...any) (any, error) {
		if err := arity("trig", params, 1); err != nil {
			return nil, err
		}
		q, ok := AsQuantity(params[0])
		if !ok || (q.Unit != Dimensionless && q.Unit != unitAngle) {
			return nil, fmt.Errorf("%w: expects an angle, got %v", ErrOperand, params[0])
		}
		return fn(q.Value * math.Pi / 180), nil
	}
}

func fnAtan2(params ...any) (any, error) {
	if err := arity("atan2", params, 2); err != nil {
		return nil, err
	}
	y, x, err := operands("atan2", params[0], params[1])
	if err != nil {
		return nil, err
	}
	if x.Unit != y.Unit {
		return nil, fmt.Errorf("%w: atan2(%s, %s)", ErrUnitMismatch, y, x)
	}
	return Quantity{Value: math.Atan2(y.Value, x.Value) * 180 / math.Pi, Unit: unitAngle}, nil
}

func keepUnit(fn func(float64) float64) builtinFunc {
	return func(params ...any) (any, error) {
		if err := arity("function", params, 1); err != nil {
			return nil, err
		}
		q, ok := AsQuantity(params[0])
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrOperand, params[0])
		}
		return quantityResult(Quantity{fn(q.Value), q.Unit}), nil
	}
}

// flatten expands a single list argument into its items.
func flatten(params []any) []any {
	if len(params) == 1 {
		if l, ok := params[0].([]any); ok {
			return l
		}
	}
	return params
}

func extreme(op string) builtinFunc {
	return func(params ...any) (any, error) {
		items := flatten(params)
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: no arguments", ErrOperand)
		}
		best := items[0]
		for _, item := range items[1:] {
			better, err := compare(op, item, best)
			if err != nil {
				return nil, err
			}
			if better {
				best = item
			}
		}
		return best, nil
	}
}

func fnSum(params ...any) (any, error) {
	items := flatten(params)
	if len(items) == 0 {
		return 0.0, nil
	}
	total := items[0]
	for _, item := range items[1:] {
		var err error
		if total, err = add(total, item); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// keywords of the expr language and its builtins that cannot name a value.
var keywords = map[string]bool{
	"true": true, "false": true, "nil": true, "and": true, "or": true, "not": true,
	"in": true, "matches": true, "contains": true, "startsWith": true, "endsWith": true,
	"let": true, "if": true, "else": true, "def": true, "len": true, "all": true, "any": true,
	"none": true, "one": true, "filter": true, "map": true, "count": true, "find": true,
}

// IsReservedName reports whether name is a keyword or function of the
// expression language and so cannot be used as an alias.
func IsReservedName(name string) bool {
	return keywords[name] || isFunctionName(name)
}
