package paramsheet

import (
	"strings"

	"github.com/javajack/paramsheet/expression"
)

// PasteType selects which parts of a cell a paste or SetExpression applies.
type PasteType int

const (
	PasteValue   PasteType = 1
	PasteFormat  PasteType = 2
	PasteFormula PasteType = 4
	PasteAll               = PasteFormat | PasteFormula
)

// Has reports whether every bit of bit is set.
func (p PasteType) Has(bit PasteType) bool { return p&bit == bit }

const formatHeaderPrefix = "<Cell "

// TryParseExpression interprets text as a number or simple unit
// expression. It returns nil when the text is anything else.
func TryParseExpression(text string) expression.Expression {
	return expression.TryParseNumber(text)
}

// SetContent sets the cell from user text. Malformed formulas never fail:
// the text is kept as a string and a parse exception is recorded. When eval
// is set the expression is evaluated once and the result is stored.
func (c *Cell) SetContent(text string, eval bool) {
	s := c.owner
	defer s.AtomicChange().Close()

	if s.restoring {
		if text != "" && text != "'" {
			c.storeExpression(expression.NewString(text))
		}
		return
	}
	if c.HasException() {
		c.ClearException()
	}

	var (
		e        expression.Expression
		parseErr error
	)
	switch {
	case text == "" || text == "'":
	case strings.HasPrefix(text, "="):
		e, parseErr = expression.Parse(text[1:])
	case strings.HasPrefix(text, "'"):
		e = expression.NewString(text[1:])
	default:
		if e = TryParseExpression(text); e == nil {
			e = expression.NewString(text)
		}
	}

	paste := PasteFormula
	if eval {
		paste |= PasteValue
	}
	if parseErr == nil {
		parseErr = c.SetExpression(e, paste)
	}
	if parseErr != nil {
		raw := text
		if !strings.HasPrefix(raw, "=") {
			raw = "=" + raw
		}
		c.storeExpression(expression.NewString(raw))
		c.SetParseException(parseErr.Error())
	}
	c.applyAutoAlias()
}

// SetExpression replaces the cell's expression. Only the parts selected by
// paste are applied: PasteFormat restores a leading <Cell .../> header
// comment, PasteValue stores the evaluated result, PasteFormula stores the
// expression itself. A result without a source form, such as a callable,
// leaves the expression in place.
func (c *Cell) SetExpression(e expression.Expression, paste PasteType) error {
	s := c.owner
	defer s.AtomicChange().Close()

	c.setDirty()
	oldRefs := s.graph.clear(c.address)

	if fn, ok := e.(*expression.FunctionExpr); ok {
		_ = c.SetAlias(fn.Name, true)
	}

	if e != nil && strings.HasPrefix(e.Comment(), formatHeaderPrefix) {
		if paste.Has(PasteFormat) {
			if err := c.restoreFormatHeader(e.Comment()); err != nil {
				s.log.Warn("ignoring cell format header", "cell", c.address, "error", err)
			}
		}
		e = e.WithComment("")
		if str, ok := e.(*expression.StringExpr); ok && str.Text == "" {
			e = nil
		}
	}

	if !paste.Has(PasteValue) && !paste.Has(PasteFormula) {
		s.graph.add(c.address, oldRefs)
		return nil
	}

	if paste.Has(PasteValue) && e != nil {
		v, err := s.evaluator.Eval(e, s.resolverFor(c.address))
		if err != nil {
			s.graph.add(c.address, oldRefs)
			return &CellError{Address: c.address, Err: err}
		}
		if expression.Restorable(v) {
			e = v
		}
	}

	if e != nil && expression.IsSimple(e, false) {
		e = expression.Reduce(e)
	}
	c.storeExpression(e)
	return nil
}

// storeExpression installs e and its dependency edges.
func (c *Cell) storeExpression(e expression.Expression) {
	s := c.owner
	c.setDirty()
	s.graph.clear(c.address)
	c.expr = e
	c.setUsed(UsedExpression, e != nil)
	if e != nil {
		s.graph.add(c.address, expression.References(e))
	}
}

// StringContent returns the text that, given to SetContent, reproduces
// the cell's expression.
func (c *Cell) StringContent() string {
	switch e := c.expr.(type) {
	case nil:
		return ""
	case *expression.StringExpr:
		if c.HasParseException() {
			return e.Text
		}
		if e.Comment() == "" && (needsQuote(e.Text) || TryParseExpression(e.Text) != nil) {
			return "'" + e.Text
		}
		if e.Comment() == "" {
			return e.Text
		}
	case *expression.NumberExpr:
		if e.Comment() == "" {
			return expression.Text(e)
		}
	}
	return "=" + expression.Text(c.expr)
}

func needsQuote(text string) bool {
	return strings.HasPrefix(text, "=") || strings.HasPrefix(text, "'")
}

// ExpressionWithFormat returns the expression carrying a <Cell .../>
// comment header with the cell's formatting, for clipboard transport.
// Cells with default formatting return the plain expression.
func (c *Cell) ExpressionWithFormat() expression.Expression {
	if c.used&(usedFormat) == 0 && c.editMode == EditNormal {
		return c.expr
	}
	e := c.expr
	if e == nil {
		e = expression.NewString("")
	}
	return e.WithComment(c.formatHeader())
}
