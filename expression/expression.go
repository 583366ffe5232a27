// Package expression implements the cell expression language: literal
// values, lists, maps, double bindings, function statements and formulas
// compiled with expr-lang/expr. Numbers carry units.
package expression

import (
	"strconv"
	"strings"
)

// Kind identifies the concrete type of an Expression.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
	KindMap
	KindBinding
	KindFunction
	KindCallable
	KindFormula
)

var kindNames = [...]string{"String", "Number", "Bool", "List", "Map", "Binding", "Function", "Callable", "Formula"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Expression is a parsed cell expression. The set of implementations is
// closed: *StringExpr, *NumberExpr, *BoolExpr, *ListExpr, *MapExpr,
// *BindingExpr, *FunctionExpr, *CallableExpr and *FormulaExpr.
//
// Expressions are immutable; the With* methods return modified copies.
type Expression interface {
	Kind() Kind
	// Source returns the expression in formula syntax, without comment.
	Source() string
	// Comment returns the leading /*...*/ comment text, if any.
	Comment() string
	// WithComment returns a copy carrying the given comment.
	WithComment(comment string) Expression
	// Copy returns a deep copy.
	Copy() Expression
	sealed()
}

// Invocable is a value that can be called, such as a function statement or
// a callable supplied by the document container.
type Invocable interface {
	Call(args ...any) (any, error)
	Doc() string
}

type base struct {
	comment string
}

func (b base) Comment() string { return b.comment }
func (base) sealed() {}

// Text returns the expression source prefixed with its comment.
func Text(e Expression) string {
	if e == nil {
		return ""
	}
	if c := e.Comment(); c != "" {
		return "/*" + c + "*/" + e.Source()
	}
	return e.Source()
}

// StringExpr is a literal string.
type StringExpr struct {
	base
	Text string
}

// NewString returns a string literal expression.
func NewString(text string) *StringExpr { return &StringExpr{Text: text} }

func (e *StringExpr) Kind() Kind { return KindString }
func (e *StringExpr) Source() string { return strconv.Quote(e.Text) }
func (e *StringExpr) Copy() Expression {
	c := *e
	return &c
}
func (e *StringExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// NumberExpr is a numeric literal with an optional unit.
type NumberExpr struct {
	base
	Quantity Quantity
	text     string // literal as written, empty when built from a value
}

// NewNumber returns a number literal expression for q.
func NewNumber(q Quantity) *NumberExpr { return &NumberExpr{Quantity: q} }

func (e *NumberExpr) Kind() Kind { return KindNumber }
func (e *NumberExpr) Source() string {
	if e.text != "" {
		return e.text
	}
	return e.Quantity.String()
}
func (e *NumberExpr) Copy() Expression {
	c := *e
	return &c
}
func (e *NumberExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// BoolExpr is a literal boolean.
type BoolExpr struct {
	base
	Value bool
}

// NewBool returns a boolean literal expression.
func NewBool(v bool) *BoolExpr { return &BoolExpr{Value: v} }

func (e *BoolExpr) Kind() Kind { return KindBool }
func (e *BoolExpr) Source() string { return strconv.FormatBool(e.Value) }
func (e *BoolExpr) Copy() Expression {
	c := *e
	return &c
}
func (e *BoolExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// ListExpr is a list literal whose items are expressions.
type ListExpr struct {
	base
	Items []Expression
	text  string
}

// NewList returns a list expression over items.
func NewList(items ...Expression) *ListExpr { return &ListExpr{Items: items} }

func (e *ListExpr) Kind() Kind { return KindList }
func (e *ListExpr) Source() string {
	if e.text != "" {
		return e.text
	}
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = Text(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (e *ListExpr) Copy() Expression {
	c := *e
	c.Items = make([]Expression, len(e.Items))
	for i, item := range e.Items {
		c.Items[i] = item.Copy()
	}
	return &c
}
func (e *ListExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// Len returns the number of items.
func (e *ListExpr) Len() int { return len(e.Items) }

// WithItem returns a copy of the list with item i replaced. The remaining
// items keep their source text.
func (e *ListExpr) WithItem(i int, item Expression) *ListExpr {
	c := e.Copy().(*ListExpr)
	c.text = ""
	if i >= len(c.Items) {
		return c
	}
	c.Items[i] = item
	return c
}

// MapExpr is a map literal with string keys in source order.
type MapExpr struct {
	base
	Keys   []string
	Values []Expression
	text   string
}

func (e *MapExpr) Kind() Kind { return KindMap }
func (e *MapExpr) Source() string {
	if e.text != "" {
		return e.text
	}
	parts := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		parts[i] = strconv.Quote(k) + ": " + Text(e.Values[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (e *MapExpr) Copy() Expression {
	c := *e
	c.Keys = append([]string(nil), e.Keys...)
	c.Values = make([]Expression, len(e.Values))
	for i, v := range e.Values {
		c.Values[i] = v.Copy()
	}
	return &c
}
func (e *MapExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// Get returns the value stored under key.
func (e *MapExpr) Get(key string) (Expression, bool) {
	for i, k := range e.Keys {
		if k == key {
			return e.Values[i], true
		}
	}
	return nil, false
}

// BindingExpr is a double binding, dbind(path), to a cell, alias or
// container property. Edits through a binding write to its target.
type BindingExpr struct {
	base
	Path string
}

func (e *BindingExpr) Kind() Kind { return KindBinding }
func (e *BindingExpr) Source() string { return "dbind(" + e.Path + ")" }
func (e *BindingExpr) Copy() Expression {
	c := *e
	return &c
}
func (e *BindingExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// FunctionExpr is a function statement: def name(params): body.
type FunctionExpr struct {
	base
	Name   string
	Params []string
	Body   Expression
}

func (e *FunctionExpr) Kind() Kind { return KindFunction }
func (e *FunctionExpr) Source() string {
	return "def " + e.Name + "(" + strings.Join(e.Params, ", ") + "): " + Text(e.Body)
}
func (e *FunctionExpr) Copy() Expression {
	c := *e
	c.Params = append([]string(nil), e.Params...)
	c.Body = e.Body.Copy()
	return &c
}
func (e *FunctionExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// CallableExpr wraps an Invocable produced by evaluation. It has no
// parseable source form.
type CallableExpr struct {
	base
	Fn Invocable
}

func (e *CallableExpr) Kind() Kind { return KindCallable }
func (e *CallableExpr) Source() string {
	if doc := e.Fn.Doc(); doc != "" {
		return "<callable " + doc + ">"
	}
	return "<callable>"
}
func (e *CallableExpr) Copy() Expression {
	c := *e
	return &c
}
func (e *CallableExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// FormulaExpr is any other expression, kept as the source text it was
// parsed from.
type FormulaExpr struct {
	base
	Text string
}

func (e *FormulaExpr) Kind() Kind { return KindFormula }
func (e *FormulaExpr) Source() string { return e.Text }
func (e *FormulaExpr) Copy() Expression {
	c := *e
	return &c
}
func (e *FormulaExpr) WithComment(comment string) Expression {
	c := *e
	c.comment = comment
	return &c
}

// IsDoubleBinding reports whether e writes edits back to a bound target.
func IsDoubleBinding(e Expression) bool {
	_, ok := e.(*BindingExpr)
	return ok
}

// AsList returns e as a list expression when it is one.
func AsList(e Expression) (*ListExpr, bool) {
	l, ok := e.(*ListExpr)
	return l, ok
}
