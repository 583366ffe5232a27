package paramsheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/efp"

	"github.com/javajack/paramsheet/expression"
)

// ErrUnsupportedFormula is returned for workbook formulas that have no
// equivalent expression, and for expressions with no workbook equivalent.
var ErrUnsupportedFormula = errors.New("unsupported formula")

// excelFunctions maps workbook function names to expression functions with
// the same semantics. Trigonometry is left out: workbooks use radians.
var excelFunctions = map[string]string{
	"SUM":     "sum",
	"MIN":     "min",
	"MAX":     "max",
	"ABS":     "abs",
	"SQRT":    "sqrt",
	"POWER":   "pow",
	"INT":     "floor",
	"CEILING": "ceil",
}

var expressionFunctions = func() map[string]string {
	m := make(map[string]string, len(excelFunctions))
	for k, v := range excelFunctions {
		m[v] = k
	}
	return m
}()

// FromExcelFormula converts a workbook formula (without the leading '=')
// to expression text.
func FromExcelFormula(formula string) (string, error) {
	ps := efp.ExcelParser()
	tokens := ps.Parse(formula)
	var b strings.Builder
	for _, tok := range tokens {
		switch tok.TType {
		case efp.TokenTypeNoop:
		case efp.TokenTypeOperand:
			switch tok.TSubType {
			case efp.TokenSubTypeNumber:
				b.WriteString(tok.TValue)
			case efp.TokenSubTypeText:
				b.WriteString(strconv.Quote(tok.TValue))
			case efp.TokenSubTypeLogical:
				b.WriteString(strings.ToLower(tok.TValue))
			case efp.TokenSubTypeRange:
				ref, err := localRef(tok.TValue)
				if err != nil {
					return "", err
				}
				b.WriteString(ref)
			default:
				return "", fmt.Errorf("%w: operand %q", ErrUnsupportedFormula, tok.TValue)
			}
		case efp.TokenTypeFunction:
			if tok.TSubType == efp.TokenSubTypeStop {
				b.WriteByte(')')
				continue
			}
			name, ok := excelFunctions[strings.ToUpper(tok.TValue)]
			if !ok {
				return "", fmt.Errorf("%w: function %s", ErrUnsupportedFormula, tok.TValue)
			}
			b.WriteString(name + "(")
		case efp.TokenTypeSubexpression:
			if tok.TSubType == efp.TokenSubTypeStart {
				b.WriteByte('(')
			} else {
				b.WriteByte(')')
			}
		case efp.TokenTypeArgument:
			b.WriteString(", ")
		case efp.TokenTypeOperatorPrefix:
			b.WriteString(tok.TValue)
		case efp.TokenTypeOperatorPostfix:
			b.WriteString(" / 100")
		case efp.TokenTypeOperatorInfix:
			op, err := infixFromExcel(tok)
			if err != nil {
				return "", err
			}
			b.WriteString(" " + op + " ")
		default:
			return "", fmt.Errorf("%w: %q", ErrUnsupportedFormula, tok.TValue)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func infixFromExcel(tok efp.Token) (string, error) {
	switch tok.TValue {
	case "=":
		return "==", nil
	case "<>":
		return "!=", nil
	case "+", "-", "*", "/", "^", "<", ">", "<=", ">=":
		return tok.TValue, nil
	}
	return "", fmt.Errorf("%w: operator %q", ErrUnsupportedFormula, tok.TValue)
}

// localRef strips a sheet prefix from a workbook reference. References into
// other sheets cannot be represented.
func localRef(ref string) (string, error) {
	if strings.Contains(ref, "!") {
		return "", fmt.Errorf("%w: reference %q into another sheet", ErrUnsupportedFormula, ref)
	}
	return ref, nil
}

// ToExcelFormula converts formula expression text to a workbook formula
// (without the leading '='). Only plain arithmetic over cell references,
// aliases and mapped functions converts; unit-carrying formulas do not.
func (s *PropertySheet) ToExcelFormula(text string) (string, error) {
	ps := efp.ExcelParser()
	tokens := ps.Parse(strings.NewReplacer("==", "=", "!=", "<>", "**", "^").Replace(text))
	var b strings.Builder
	for _, tok := range tokens {
		switch tok.TType {
		case efp.TokenTypeNoop:
		case efp.TokenTypeOperand:
			switch tok.TSubType {
			case efp.TokenSubTypeNumber:
				b.WriteString(tok.TValue)
			case efp.TokenSubTypeText:
				b.WriteString(`"` + strings.ReplaceAll(tok.TValue, `"`, `""`) + `"`)
			case efp.TokenSubTypeLogical:
				b.WriteString(tok.TValue)
			case efp.TokenSubTypeRange:
				// the workbook only knows upper case booleans
				if tok.TValue == "true" || tok.TValue == "false" {
					b.WriteString(strings.ToUpper(tok.TValue))
					continue
				}
				if !s.excelReference(tok.TValue) {
					return "", fmt.Errorf("%w: %q", ErrUnsupportedFormula, tok.TValue)
				}
				b.WriteString(tok.TValue)
			default:
				return "", fmt.Errorf("%w: %q", ErrUnsupportedFormula, tok.TValue)
			}
		case efp.TokenTypeFunction:
			if tok.TSubType == efp.TokenSubTypeStop {
				b.WriteByte(')')
				continue
			}
			name, ok := expressionFunctions[tok.TValue]
			if !ok {
				return "", fmt.Errorf("%w: function %s", ErrUnsupportedFormula, tok.TValue)
			}
			b.WriteString(name + "(")
		case efp.TokenTypeSubexpression:
			if tok.TSubType == efp.TokenSubTypeStart {
				b.WriteByte('(')
			} else {
				b.WriteByte(')')
			}
		case efp.TokenTypeArgument:
			b.WriteByte(',')
		case efp.TokenTypeOperatorPrefix:
			b.WriteString(tok.TValue)
		case efp.TokenTypeOperatorInfix:
			switch tok.TValue {
			case "+", "-", "*", "/", "^", "<", ">", "<=", ">=", "=", "<>":
				b.WriteString(tok.TValue)
			default:
				return "", fmt.Errorf("%w: operator %q", ErrUnsupportedFormula, tok.TValue)
			}
		default:
			return "", fmt.Errorf("%w: %q", ErrUnsupportedFormula, tok.TValue)
		}
	}
	return b.String(), nil
}

// excelReference reports whether ref names a cell, a range or an alias of
// this sheet. Anything else in a formula is a unit or an outside property.
func (s *PropertySheet) excelReference(ref string) bool {
	if _, ok := s.revAlias[ref]; ok {
		return true
	}
	from, to, isRange := strings.Cut(ref, ":")
	if !expression.IsAddress(from) {
		return false
	}
	return !isRange || expression.IsAddress(to)
}
