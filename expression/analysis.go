package expression

import (
	"sort"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

func parseTree(src string) (ast.Node, error) {
	tree, err := parser.Parse(rewriteSource(src))
	if err != nil {
		return nil, &ParseError{Text: src, Err: err}
	}
	return tree.Node, nil
}

// IsSimple reports whether e is a constant expression: numbers, quantities
// and operators over them. With noArithmetics only negation and division
// (fractions such as "1/2 in") are accepted.
func IsSimple(e Expression, noArithmetics bool) bool {
	switch x := e.(type) {
	case *NumberExpr:
		return true
	case *BoolExpr:
		return !noArithmetics
	case *FormulaExpr:
		node, err := parseTree(x.Text)
		if err != nil {
			return false
		}
		return simpleNode(node, noArithmetics)
	case *StringExpr, *ListExpr, *MapExpr, *BindingExpr, *FunctionExpr, *CallableExpr:
		return false
	}
	return false
}

var simpleBinary = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "^": true, "**": true,
	"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true,
	"and": true, "or": true, "&&": true, "||": true,
}

func simpleNode(node ast.Node, noArithmetics bool) bool {
	if _, ok := literalQuantity(node); ok {
		return true
	}
	switch n := node.(type) {
	case *ast.BoolNode:
		return !noArithmetics
	case *ast.UnaryNode:
		if n.Operator != "-" && (noArithmetics || (n.Operator != "+" && n.Operator != "not" && n.Operator != "!")) {
			return false
		}
		return simpleNode(n.Node, noArithmetics)
	case *ast.BinaryNode:
		if noArithmetics {
			if n.Operator != "/" {
				return false
			}
		} else if !simpleBinary[n.Operator] {
			return false
		}
		return simpleNode(n.Left, noArithmetics) && simpleNode(n.Right, noArithmetics)
	case *ast.ConditionalNode:
		return !noArithmetics && simpleNode(n.Cond, false) && simpleNode(n.Exp1, false) && simpleNode(n.Exp2, false)
	}
	return false
}

// Reduce returns the minimal form of a simple expression, dropping
// redundant enclosing parentheses. Other expressions are returned as is.
func Reduce(e Expression) Expression {
	if e == nil || !IsSimple(e, false) {
		return e
	}
	src := e.Source()
	stripped := stripParens(src)
	if stripped == src {
		return e
	}
	r, err := parseBody(stripped)
	if err != nil {
		return e
	}
	if c := e.Comment(); c != "" {
		r = r.WithComment(c)
	}
	return r
}

// identifiers lists the free identifiers of a tree, split into references
// and unit names. Callees of built-in functions and let-declared names are
// skipped.
func identifiers(node ast.Node) (refs, units []string) {
	c := &identCollector{
		callees:  map[*ast.IdentifierNode]bool{},
		declared: map[string]bool{},
	}
	ast.Walk(&node, &declCollector{c})
	seen := map[string]bool{}
	ast.Walk(&node, c)
	for _, id := range c.found {
		if seen[id] {
			continue
		}
		seen[id] = true
		if IsUnitName(id) {
			units = append(units, id)
		} else {
			refs = append(refs, id)
		}
	}
	return refs, units
}

type identCollector struct {
	callees  map[*ast.IdentifierNode]bool
	declared map[string]bool
	found    []string
}

func (c *identCollector) Visit(node *ast.Node) {
	id, ok := (*node).(*ast.IdentifierNode)
	if !ok || c.callees[id] || c.declared[id.Value] || id.Value == "$env" {
		return
	}
	c.found = append(c.found, id.Value)
}

type declCollector struct{ c *identCollector }

func (d *declCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok && isFunctionName(id.Value) {
			d.c.callees[id] = true
		}
	case *ast.VariableDeclaratorNode:
		d.c.declared[n.Name] = true
	}
}

// References returns the sorted cell addresses, ranges ("A1:B3"), aliases
// and container names that e reads.
func References(e Expression) []string {
	set := map[string]bool{}
	collectReferences(e, set)
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func collectReferences(e Expression, set map[string]bool) {
	switch x := e.(type) {
	case *FormulaExpr:
		node, err := parseTree(x.Text)
		if err != nil {
			return
		}
		refs, _ := identifiers(node)
		for _, r := range refs {
			set[referenceName(r)] = true
		}
	case *ListExpr:
		for _, item := range x.Items {
			collectReferences(item, set)
		}
	case *MapExpr:
		for _, v := range x.Values {
			collectReferences(v, set)
		}
	case *BindingExpr:
		root, _, _ := strings.Cut(x.Path, ".")
		set[root] = true
	case *FunctionExpr:
		inner := map[string]bool{}
		collectReferences(x.Body, inner)
		params := map[string]bool{}
		for _, p := range x.Params {
			params[p] = true
		}
		for r := range inner {
			if !params[r] {
				set[r] = true
			}
		}
	case *StringExpr, *NumberExpr, *BoolExpr, *CallableExpr:
	}
}

// Restorable reports whether the source text of e parses back into e.
// Callables produced by evaluation have no source form.
func Restorable(e Expression) bool {
	switch x := e.(type) {
	case *CallableExpr:
		return false
	case *ListExpr:
		for _, item := range x.Items {
			if !Restorable(item) {
				return false
			}
		}
	case *MapExpr:
		for _, v := range x.Values {
			if !Restorable(v) {
				return false
			}
		}
	}
	return true
}

// RenameReferences returns a copy of e with cell address references
// rewritten by rename. Addresses for which rename returns false are kept.
func RenameReferences(e Expression, rename func(string) (string, bool)) Expression {
	if e == nil {
		return nil
	}
	var out Expression
	switch x := e.(type) {
	case *FormulaExpr:
		out = &FormulaExpr{Text: renameTokens(x.Text, rename)}
	case *ListExpr:
		l := &ListExpr{Items: make([]Expression, len(x.Items)), text: renameTokens(x.text, rename)}
		for i, item := range x.Items {
			l.Items[i] = RenameReferences(item, rename)
		}
		out = l
	case *MapExpr:
		m := &MapExpr{Keys: append([]string(nil), x.Keys...), text: renameTokens(x.text, rename)}
		for _, v := range x.Values {
			m.Values = append(m.Values, RenameReferences(v, rename))
		}
		out = m
	case *BindingExpr:
		root, rest, hasRest := strings.Cut(x.Path, ".")
		if IsAddress(root) {
			if n, ok := rename(root); ok {
				root = n
			}
		}
		if hasRest {
			root += "." + rest
		}
		out = &BindingExpr{Path: root}
	case *FunctionExpr:
		out = &FunctionExpr{Name: x.Name, Params: append([]string(nil), x.Params...), Body: RenameReferences(x.Body, rename)}
	case *StringExpr, *NumberExpr, *BoolExpr, *CallableExpr:
		return e.Copy()
	}
	if c := e.Comment(); c != "" {
		out = out.WithComment(c)
	}
	return out
}
