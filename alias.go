package paramsheet

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/javajack/paramsheet/expression"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z][_A-Za-z0-9]*$`)

// IsValidAlias reports whether name can be used as an alias: an identifier
// that does not look like a cell address and is neither a unit symbol nor a
// reserved name of the expression language.
func IsValidAlias(name string) bool {
	if !aliasPattern.MatchString(name) {
		return false
	}
	if expression.IsAddress(strings.ToUpper(name)) {
		return false
	}
	return !expression.IsUnitName(name) && !expression.IsReservedName(name)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ToIdentifier converts free text into an identifier: diacritics are
// dropped, other characters that are not letters or digits become '_' and
// a leading digit is prefixed with '_'.
func ToIdentifier(text string) string {
	if s, _, err := transform.String(stripMarks, text); err == nil {
		text = s
	}
	var b strings.Builder
	for i, r := range text {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if i == 0 && unicode.IsDigit(r) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// AliasLocker returns the auto-alias cell that locks this cell's alias, if
// any: an AutoAliasV cell above or an AutoAlias cell to the left.
func (c *Cell) AliasLocker() (*Cell, bool) {
	if above := c.owner.Cell(c.address.Offset(-1, 0)); above != nil && above.editMode == EditAutoAliasV {
		return above, true
	}
	if left := c.owner.Cell(c.address.Offset(0, -1)); left != nil && left.editMode == EditAutoAlias {
		return left, true
	}
	return nil, false
}

// IsAliasLocked reports whether an auto-alias neighbor controls the alias.
func (c *Cell) IsAliasLocked() bool {
	_, locked := c.AliasLocker()
	return locked
}

// SetAlias sets or clears ("") the cell's alias. A locked alias is an error
// unless silent, in which case the call is a no-op. Without silent, an alias
// held by another cell is rejected; with silent it is transferred.
func (c *Cell) SetAlias(name string, silent bool) error {
	if name == c.alias {
		return nil
	}
	if locker, locked := c.AliasLocker(); locked {
		if silent {
			return nil
		}
		return &CellError{Address: c.address, Err: fmt.Errorf("%w by 'Auto alias' cell %s", ErrAliasLocked, locker.address)}
	}
	if name != "" && !IsValidAlias(name) {
		return &CellError{Address: c.address, Err: fmt.Errorf("%w: %q", ErrInvalidAlias, name)}
	}
	if holder, ok := c.owner.revAlias[name]; ok && name != "" && holder != c.address && !silent {
		return &CellError{Address: c.address, Err: fmt.Errorf("%w: %q is the alias of %s", ErrAliasInUse, name, holder)}
	}
	c.setAliasUnchecked(name)
	return nil
}

// setAliasUnchecked updates the cell and both alias maps. A previous holder
// of name loses it first.
func (c *Cell) setAliasUnchecked(name string) {
	if name == c.alias {
		return
	}
	s := c.owner
	defer s.AtomicChange().Close()

	if name != "" {
		if holder, ok := s.revAlias[name]; ok && holder != c.address {
			if hc := s.cells[holder]; hc != nil {
				hc.setAliasUnchecked("")
			} else {
				delete(s.revAlias, name)
				delete(s.aliases, holder)
			}
		}
	}

	old := c.alias
	if old != "" {
		delete(s.revAlias, old)
		if s.opts.container != nil {
			s.opts.container.RemoveProperty(old)
		}
	}
	if name != "" {
		s.aliases[c.address] = name
		s.revAlias[name] = c.address
	} else {
		delete(s.aliases, c.address)
	}
	c.alias = name
	c.setUsed(UsedAlias, name != "")
	s.recordAliasChange(c.address, old, name)
	c.setDirty()
	s.invalidateName(old)
	s.invalidateName(name)
}

// autoAliasTarget is the neighbor whose alias an auto-alias cell controls.
func (c *Cell) autoAliasTarget() CellAddress {
	if c.editMode == EditAutoAliasV {
		return c.address.Offset(1, 0)
	}
	return c.address.Offset(0, 1)
}

// applyAutoAlias pushes the cell's text content as alias onto its
// neighbor. Conflicts are recorded on this cell, never returned.
func (c *Cell) applyAutoAlias() {
	if !c.editMode.IsAutoAlias() {
		return
	}
	s := c.owner
	defer s.AtomicChange().Close()

	target := c.autoAliasTarget()
	var text string
	switch e := c.expr.(type) {
	case nil:
	case *expression.StringExpr:
		text = strings.TrimSpace(e.Text)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
	default:
		return
	}
	if text == "" {
		if sib := s.cells[target]; sib != nil && sib.alias != "" {
			sib.setAliasUnchecked("")
		}
		c.clearAutoAliasException()
		return
	}

	alias := ToIdentifier(text)
	if holder, ok := s.revAlias[alias]; ok {
		switch holder {
		case target:
			return
		case c.address:
			c.setAliasUnchecked("")
		default:
			c.SetResolveException("'Auto alias' conflict with alias in cell " + holder.String())
			return
		}
	}
	if !IsValidAlias(alias) {
		c.SetException("Invalid string content for 'Auto alias' mode")
		return
	}
	c.clearAutoAliasException()
	if sib := s.cells[target]; sib != nil {
		sib.setAliasUnchecked(alias)
	}
}

func (c *Cell) clearAutoAliasException() {
	if c.used&(usedException|usedResolveException) != 0 {
		c.exception = ""
		c.setUsed(usedException|usedResolveException, false)
		c.setDirty()
	}
}

// checkAutoAlias runs when a cell is created: a neighbor in an auto-alias
// mode is re-applied so the new cell picks up its alias, and an AutoAlias
// run continues into the new cell.
func (c *Cell) checkAutoAlias() {
	s := c.owner
	if above := s.Cell(c.address.Offset(-1, 0)); above != nil {
		switch above.editMode {
		case EditAutoAliasV:
			above.applyAutoAlias()
			return
		case EditAutoAlias:
			c.editMode = EditAutoAlias
			above.applyAutoAlias()
			return
		}
	}
	if left := s.Cell(c.address.Offset(0, -1)); left != nil {
		switch left.editMode {
		case EditAutoAlias:
			left.applyAutoAlias()
		case EditAutoAliasV:
			c.editMode = EditAutoAlias
			left.applyAutoAlias()
		}
	}
}
