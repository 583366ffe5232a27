package expression

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrUnitMismatch is returned when an operation combines incompatible units.
	ErrUnitMismatch = errors.New("unit mismatch")
	// ErrDivisionByZero is returned when dividing by a zero quantity.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrOperand is returned when an operator receives a value it cannot handle.
	ErrOperand = errors.New("invalid operand")
)

// Quantity is a number with a unit, stored in base units.
type Quantity struct {
	Value float64
	Unit  Unit
}

// NewQuantity returns value expressed in the given unit symbol converted to
// base units.
func NewQuantity(value float64, unit string) (Quantity, error) {
	if unit == "" {
		return Quantity{Value: value}, nil
	}
	u, scale, err := ParseUnit(unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: value * scale, Unit: u}, nil
}

// String formats the quantity with its base unit, e.g. "10 mm".
func (q Quantity) String() string {
	s := formatNumber(q.Value)
	if q.Unit.IsEmpty() {
		return s
	}
	return s + " " + q.Unit.String()
}

// Format renders the quantity with a fixed number of decimals.
func (q Quantity) Format(decimals int) string {
	s := strconv.FormatFloat(q.Value, 'f', decimals, 64)
	if q.Unit.IsEmpty() {
		return s
	}
	return s + " " + q.Unit.String()
}

// In returns the value expressed in a unit with the given scale.
func (q Quantity) In(scale float64) float64 {
	if scale == 0 {
		return q.Value
	}
	return q.Value / scale
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// AsQuantity converts numeric values and quantities to a Quantity.
func AsQuantity(v any) (Quantity, bool) {
	switch n := v.(type) {
	case Quantity:
		return n, true
	case float64:
		return Quantity{Value: n}, true
	case float32:
		return Quantity{Value: float64(n)}, true
	case int:
		return Quantity{Value: float64(n)}, true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Quantity{Value: reflect.ValueOf(n).Convert(reflect.TypeOf(float64(0))).Float()}, true
	}
	return Quantity{}, false
}

// IsNumeric reports whether v is a number or a quantity.
func IsNumeric(v any) bool {
	_, ok := AsQuantity(v)
	return ok
}

// quantityResult collapses dimensionless quantities to float64.
func quantityResult(q Quantity) any {
	if q.Unit.IsEmpty() {
		return q.Value
	}
	return q
}

func operands(op string, a, b any) (Quantity, Quantity, error) {
	x, okA := AsQuantity(a)
	y, okB := AsQuantity(b)
	if !okA || !okB {
		return Quantity{}, Quantity{}, fmt.Errorf("%w: %T %s %T", ErrOperand, a, op, b)
	}
	return x, y, nil
}

func add(a, b any) (any, error) {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa + sb, nil
		}
	}
	if la, ok := a.([]any); ok {
		if lb, ok := b.([]any); ok {
			return append(append([]any{}, la...), lb...), nil
		}
	}
	x, y, err := operands("+", a, b)
	if err != nil {
		return nil, err
	}
	if x.Unit != y.Unit {
		return nil, fmt.Errorf("%w: %s + %s", ErrUnitMismatch, x, y)
	}
	return quantityResult(Quantity{x.Value + y.Value, x.Unit}), nil
}

func sub(a, b any) (any, error) {
	x, y, err := operands("-", a, b)
	if err != nil {
		return nil, err
	}
	if x.Unit != y.Unit {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnitMismatch, x, y)
	}
	return quantityResult(Quantity{x.Value - y.Value, x.Unit}), nil
}

func mul(a, b any) (any, error) {
	if s, ok := a.(string); ok {
		if n, ok := AsQuantity(b); ok && n.Unit.IsEmpty() && n.Value >= 0 {
			return strings.Repeat(s, int(n.Value)), nil
		}
	}
	x, y, err := operands("*", a, b)
	if err != nil {
		return nil, err
	}
	return quantityResult(Quantity{x.Value * y.Value, x.Unit.Mul(y.Unit)}), nil
}

func div(a, b any) (any, error) {
	x, y, err := operands("/", a, b)
	if err != nil {
		return nil, err
	}
	if y.Value == 0 {
		return nil, ErrDivisionByZero
	}
	return quantityResult(Quantity{x.Value / y.Value, x.Unit.Div(y.Unit)}), nil
}

func mod(a, b any) (any, error) {
	x, y, err := operands("%", a, b)
	if err != nil {
		return nil, err
	}
	if y.Value == 0 {
		return nil, ErrDivisionByZero
	}
	if !y.Unit.IsEmpty() && x.Unit != y.Unit {
		return nil, fmt.Errorf("%w: %s %% %s", ErrUnitMismatch, x, y)
	}
	return quantityResult(Quantity{math.Mod(x.Value, y.Value), x.Unit}), nil
}

func pow(a, b any) (any, error) {
	x, y, err := operands("^", a, b)
	if err != nil {
		return nil, err
	}
	if !y.Unit.IsEmpty() {
		return nil, fmt.Errorf("%w: exponent %s has a unit", ErrUnitMismatch, y)
	}
	if !x.Unit.IsEmpty() && y.Value != math.Trunc(y.Value) {
		return nil, fmt.Errorf("%w: non-integer power of %s", ErrUnitMismatch, x)
	}
	return quantityResult(Quantity{math.Pow(x.Value, y.Value), x.Unit.Pow(int(y.Value))}), nil
}

func neg(a any) (any, error) {
	x, ok := AsQuantity(a)
	if !ok {
		return nil, fmt.Errorf("%w: -%T", ErrOperand, a)
	}
	return quantityResult(Quantity{-x.Value, x.Unit}), nil
}

func compare(op string, a, b any) (bool, error) {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return compareOrdered(op, strings.Compare(sa, sb)), nil
		}
	}
	x, y, err := operands(op, a, b)
	if err != nil {
		return false, err
	}
	if x.Unit != y.Unit {
		return false, fmt.Errorf("%w: %s %s %s", ErrUnitMismatch, x, op, y)
	}
	c := 0
	switch {
	case x.Value < y.Value:
		c = -1
	case x.Value > y.Value:
		c = 1
	}
	return compareOrdered(op, c), nil
}

func compareOrdered(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func equal(a, b any) bool {
	x, okA := AsQuantity(a)
	y, okB := AsQuantity(b)
	if okA && okB {
		return x == y
	}
	return reflect.DeepEqual(a, b)
}
