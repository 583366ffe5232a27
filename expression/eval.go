package expression

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

var (
	// ErrUnresolved is returned when a referenced name has no value.
	ErrUnresolved = errors.New("unresolved reference")
	// ErrUnsupportedValue is returned by FromValue for values that have no
	// expression form.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// Resolver supplies values for the names an expression references: cell
// addresses, ranges ("A1:B3"), aliases and container properties.
type Resolver interface {
	Resolve(name string) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (any, error)

func (f ResolverFunc) Resolve(name string) (any, error) { return f(name) }

// NoResolver fails every lookup.
var NoResolver Resolver = ResolverFunc(func(name string) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnresolved, name)
})

// Evaluator evaluates expressions. Compiled formula programs are cached by
// source text.
type Evaluator struct {
	cache sync.Map // program source → *compiled
}

type compiled struct {
	program *vm.Program
	refs    []string
	units   []string
}

// NewEvaluator creates an evaluator backed by expr-lang/expr.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

var defaultEvaluator = NewEvaluator()

// Value evaluates e with the package evaluator and returns a Go value.
func Value(e Expression, r Resolver) (any, error) {
	return defaultEvaluator.Value(e, r)
}

// ToValue converts a literal expression to a Go value without resolving
// any references.
func ToValue(e Expression) (any, error) {
	return defaultEvaluator.Value(e, NoResolver)
}

// Eval evaluates e with the package evaluator and returns the result as a
// literal expression.
func Eval(e Expression, r Resolver) (Expression, error) {
	return defaultEvaluator.Eval(e, r)
}

// Eval evaluates e and converts the result back to an expression.
func (ev *Evaluator) Eval(e Expression, r Resolver) (Expression, error) {
	v, err := ev.Value(e, r)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// Value evaluates e and returns a Go value: string, float64, Quantity,
// bool, []any, map[string]any or Invocable.
func (ev *Evaluator) Value(e Expression, r Resolver) (any, error) {
	if r == nil {
		r = NoResolver
	}
	switch x := e.(type) {
	case nil:
		return nil, nil
	case *StringExpr:
		return x.Text, nil
	case *NumberExpr:
		return quantityResult(x.Quantity), nil
	case *BoolExpr:
		return x.Value, nil
	case *ListExpr:
		out := make([]any, len(x.Items))
		for i, item := range x.Items {
			v, err := ev.Value(item, r)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *MapExpr:
		out := make(map[string]any, len(x.Keys))
		for i, k := range x.Keys {
			v, err := ev.Value(x.Values[i], r)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *BindingExpr:
		return ev.run(x.Path, r)
	case *FunctionExpr:
		return &function{def: x, ev: ev, outer: r}, nil
	case *CallableExpr:
		return x.Fn, nil
	case *FormulaExpr:
		return ev.run(x.Text, r)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, e)
}

func (ev *Evaluator) run(src string, r Resolver) (any, error) {
	c, err := ev.compile(src)
	if err != nil {
		return nil, err
	}
	env := make(map[string]any, len(c.refs)+len(c.units))
	for _, u := range c.units {
		// function parameters and aliases shadow unit symbols
		if v, err := r.Resolve(u); err == nil {
			env[u] = envValue(v)
			continue
		}
		def := unitTable[u]
		env[u] = Quantity{Value: def.scale, Unit: def.unit}
	}
	for _, ref := range c.refs {
		v, err := r.Resolve(referenceName(ref))
		if err != nil {
			return nil, err
		}
		env[ref] = envValue(v)
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", src, err)
	}
	return normalize(out), nil
}

func (ev *Evaluator) compile(src string) (*compiled, error) {
	if cached, ok := ev.cache.Load(src); ok {
		return cached.(*compiled), nil
	}
	program := rewriteSource(src)
	tree, err := parser.Parse(program)
	if err != nil {
		return nil, &ParseError{Text: src, Err: err}
	}
	refs, units := identifiers(tree.Node)
	opts := append([]expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.Patch(operatorPatcher{}),
	}, functionOptions...)
	p, err := expr.Compile(program, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	c := &compiled{program: p, refs: refs, units: units}
	ev.cache.Store(src, c)
	return c, nil
}

var binaryHelpers = map[string]string{
	"+": "_add", "-": "_sub", "*": "_mul", "/": "_div", "%": "_mod",
	"^": "_pow", "**": "_pow",
	"<": "_lt", "<=": "_le", ">": "_gt", ">=": "_ge",
	"==": "_eq", "!=": "_ne",
}

// operatorPatcher routes arithmetic and comparisons through unit-aware
// helper functions.
type operatorPatcher struct{}

func (operatorPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		if fn, ok := binaryHelpers[n.Operator]; ok {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: fn},
				Arguments: []ast.Node{n.Left, n.Right},
			})
		}
	case *ast.UnaryNode:
		if n.Operator == "-" {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: "_neg"},
				Arguments: []ast.Node{n.Node},
			})
		}
	}
}

// envValue adapts resolved values for use inside a program.
func envValue(v any) any {
	if inv, ok := v.(Invocable); ok {
		return func(args ...any) (any, error) { return inv.Call(args...) }
	}
	return v
}

// normalize converts integers to float64 and wraps plain functions, so
// callers see a small set of value types.
func normalize(v any) any {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		q, _ := AsQuantity(x)
		return q.Value
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}
		return out
	case func(args ...any) (any, error):
		return funcInvocable(x)
	}
	return v
}

type funcInvocable func(args ...any) (any, error)

func (f funcInvocable) Call(args ...any) (any, error) { return f(args...) }
func (f funcInvocable) Doc() string                  { return "" }

// function is the Invocable produced by a function statement.
type function struct {
	def   *FunctionExpr
	ev    *Evaluator
	outer Resolver
}

func (f *function) Call(args ...any) (any, error) {
	if len(args) != len(f.def.Params) {
		return nil, fmt.Errorf("%s: expects %d arguments, got %d", f.def.Name, len(f.def.Params), len(args))
	}
	scope := ResolverFunc(func(name string) (any, error) {
		for i, p := range f.def.Params {
			if p == name {
				return args[i], nil
			}
		}
		return f.outer.Resolve(name)
	})
	return f.ev.Value(f.def.Body, scope)
}

// Doc returns the comment leading the function body.
func (f *function) Doc() string {
	return f.def.Body.Comment()
}

// FromValue converts a Go value produced by evaluation into a literal
// expression. A nil value yields a nil expression.
func FromValue(v any) (Expression, error) {
	if q, ok := AsQuantity(v); ok {
		return NewNumber(q), nil
	}
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return NewString(x), nil
	case bool:
		return NewBool(x), nil
	case []any:
		items := make([]Expression, len(x))
		for i, item := range x {
			e, err := FromValue(item)
			if err != nil {
				return nil, err
			}
			if e == nil {
				e = &FormulaExpr{Text: "nil"}
			}
			items[i] = e
		}
		return NewList(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := &MapExpr{Keys: keys}
		for _, k := range keys {
			e, err := FromValue(x[k])
			if err != nil {
				return nil, err
			}
			if e == nil {
				e = &FormulaExpr{Text: "nil"}
			}
			m.Values = append(m.Values, e)
		}
		return m, nil
	case Invocable:
		return &CallableExpr{Fn: x}, nil
	case func(args ...any) (any, error):
		return &CallableExpr{Fn: funcInvocable(x)}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}
