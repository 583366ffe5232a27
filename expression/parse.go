package expression

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// ErrSyntax is wrapped by all parse failures.
var ErrSyntax = errors.New("syntax error")

// ParseError reports a failure to parse formula text.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrSyntax, e.Err} }

var defPattern = regexp.MustCompile(`(?s)^def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*:(.*)$`)

// Parse parses formula text (without the leading '='). A leading /*...*/
// comment is kept as the expression's comment.
func Parse(text string) (Expression, error) {
	comment, rest := leadingComment(text)
	e, err := parseBody(rest)
	if err != nil {
		return nil, err
	}
	if comment != "" {
		e = e.WithComment(comment)
	}
	return e, nil
}

func parseBody(text string) (Expression, error) {
	src := strings.TrimSpace(text)
	if src == "" {
		return nil, &ParseError{Text: text, Err: errors.New("empty expression")}
	}
	if m := defPattern.FindStringSubmatch(src); m != nil {
		return parseFunction(src, m)
	}
	tree, err := parser.Parse(rewriteSource(src))
	if err != nil {
		return nil, &ParseError{Text: src, Err: err}
	}
	return classify(tree.Node, src)
}

func parseFunction(src string, m []string) (Expression, error) {
	var params []string
	for _, p := range strings.Split(m[2], ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !identPattern.MatchString(p) {
			return nil, &ParseError{Text: src, Err: fmt.Errorf("invalid parameter %q", p)}
		}
		params = append(params, p)
	}
	body, err := Parse(m[3])
	if err != nil {
		return nil, err
	}
	return &FunctionExpr{Name: m[1], Params: params, Body: body}, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// classify maps a parsed tree onto the expression kinds. src is the text
// the tree was parsed from, before source rewriting.
func classify(node ast.Node, src string) (Expression, error) {
	if q, ok := literalQuantity(node); ok {
		return &NumberExpr{Quantity: q, text: src}, nil
	}
	switch n := node.(type) {
	case *ast.StringNode:
		return &StringExpr{Text: n.Value}, nil
	case *ast.BoolNode:
		return &BoolExpr{Value: n.Value}, nil
	case *ast.ArrayNode:
		return classifyList(n, src)
	case *ast.MapNode:
		return classifyMap(n, src)
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok && id.Value == "dbind" && len(n.Arguments) == 1 {
			if path, ok := bindingPath(n.Arguments[0]); ok {
				return &BindingExpr{Path: path}, nil
			}
			return nil, &ParseError{Text: src, Err: errors.New("dbind expects a cell, alias or property path")}
		}
	}
	return &FormulaExpr{Text: src}, nil
}

func classifyList(n *ast.ArrayNode, src string) (Expression, error) {
	inner, ok := bracketed(src, '[', ']')
	if !ok {
		return &FormulaExpr{Text: src}, nil
	}
	parts := nonEmpty(splitTopLevel(inner, ","))
	if len(parts) != len(n.Nodes) {
		return &FormulaExpr{Text: src}, nil
	}
	list := &ListExpr{Items: make([]Expression, len(parts)), text: stripParens(src)}
	for i, p := range parts {
		item, err := Parse(p)
		if err != nil {
			return nil, err
		}
		list.Items[i] = item
	}
	return list, nil
}

func classifyMap(n *ast.MapNode, src string) (Expression, error) {
	inner, ok := bracketed(src, '{', '}')
	if !ok {
		return &FormulaExpr{Text: src}, nil
	}
	parts := nonEmpty(splitTopLevel(inner, ","))
	if len(parts) != len(n.Pairs) {
		return &FormulaExpr{Text: src}, nil
	}
	m := &MapExpr{text: stripParens(src)}
	for _, p := range parts {
		kv := splitTopLevel(p, ":")
		if len(kv) < 2 {
			return &FormulaExpr{Text: src}, nil
		}
		key, err := mapKey(strings.TrimSpace(kv[0]))
		if err != nil {
			return nil, &ParseError{Text: src, Err: err}
		}
		value, err := Parse(strings.Join(kv[1:], ":"))
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, value)
	}
	return m, nil
}

func mapKey(k string) (string, error) {
	if k == "" {
		return "", errors.New("empty map key")
	}
	switch k[0] {
	case '"', '\'', '`':
		tree, err := parser.Parse(k)
		if err != nil {
			return "", err
		}
		if s, ok := tree.Node.(*ast.StringNode); ok {
			return s.Value, nil
		}
		return "", fmt.Errorf("invalid map key %s", k)
	}
	return k, nil
}

func bracketed(src string, open, close byte) (string, bool) {
	s := stripParens(src)
	if len(s) < 2 || s[0] != open || s[len(s)-1] != close {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// literalQuantity recognises number literals, qty() calls with literal
// arguments and their negations.
func literalQuantity(node ast.Node) (Quantity, bool) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return Quantity{Value: float64(n.Value)}, true
	case *ast.FloatNode:
		return Quantity{Value: n.Value}, true
	case *ast.UnaryNode:
		if n.Operator == "-" || n.Operator == "+" {
			if q, ok := literalQuantity(n.Node); ok {
				if n.Operator == "-" {
					q.Value = -q.Value
				}
				return q, true
			}
		}
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok || id.Value != "qty" || len(n.Arguments) != 2 {
			return Quantity{}, false
		}
		num, ok := literalQuantity(n.Arguments[0])
		unit, okU := n.Arguments[1].(*ast.StringNode)
		if !ok || !okU || !num.Unit.IsEmpty() {
			return Quantity{}, false
		}
		q, err := NewQuantity(num.Value, unit.Value)
		if err != nil {
			return Quantity{}, false
		}
		return q, true
	}
	return Quantity{}, false
}

// bindingPath renders identifier and member chains such as Box.Length.
func bindingPath(node ast.Node) (string, bool) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		return n.Value, true
	case *ast.MemberNode:
		prop, ok := n.Property.(*ast.StringNode)
		if !ok || n.Optional || n.Method {
			return "", false
		}
		root, ok := bindingPath(n.Node)
		if !ok {
			return "", false
		}
		return root + "." + prop.Value, true
	}
	return "", false
}

// TryParseNumber interprets text the way a cell does when no leading '='
// or quote is given: a plain number, or a simple unit expression such as
// "10 mm" or "1/2 in". It returns nil when the text is not numeric.
func TryParseNumber(text string) Expression {
	if text == "" {
		return nil
	}
	trimmed := strings.TrimRight(text, " \t\n\r")
	if v, err := strconv.ParseFloat(strings.TrimLeft(trimmed, " \t\n\r"), 64); err == nil &&
		!math.IsInf(v, 0) && !math.IsNaN(v) {
		return &NumberExpr{Quantity: Quantity{Value: v}, text: strings.TrimSpace(trimmed)}
	}
	if !startsNumeric(text) {
		return nil
	}
	e, err := Parse(text)
	if err != nil || !IsSimple(e, true) {
		return nil
	}
	return e
}

func startsNumeric(s string) bool {
	s = strings.TrimLeft(s, " \t\n\r")
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s != "" && s[0] == '.' {
		s = s[1:]
	}
	return s != "" && isDigit(rune(s[0]))
}

// MustParse is like Parse but panics on error. It is meant for tests and
// literals known to be valid.
func MustParse(text string) Expression {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}
