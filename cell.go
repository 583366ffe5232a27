package paramsheet

import (
	"fmt"
	"slices"

	"github.com/tiendc/go-deepcopy"

	"github.com/javajack/paramsheet/expression"
)

// UsedBit flags which cell attributes differ from their defaults.
type UsedBit uint32

const (
	UsedExpression   UsedBit = 0x01
	UsedAlignment    UsedBit = 0x04
	UsedStyle        UsedBit = 0x08
	UsedBackground   UsedBit = 0x10
	UsedForeground   UsedBit = 0x20
	UsedDisplayUnit  UsedBit = 0x40
	UsedComputedUnit UsedBit = 0x80
	UsedAlias        UsedBit = 0x100
	UsedSpans        UsedBit = 0x200

	usedResolveException UsedBit = 0x01000000
	usedException        UsedBit = 0x20000000
	usedMark             UsedBit = 0x40000000
	usedParseException   UsedBit = 0x80000000
)

// usedContent are the bits that keep a cell alive.
const usedContent = UsedExpression | UsedAlignment | UsedStyle | UsedBackground | UsedForeground |
	UsedDisplayUnit | UsedAlias | UsedSpans

// usedFormat are the bits restored from a format header.
const usedFormat = UsedAlignment | UsedStyle | UsedBackground | UsedForeground | UsedDisplayUnit | UsedSpans

// Cell is one addressed cell of a PropertySheet. Cells are created and owned
// by their sheet; all mutators notify the sheet inside an atomic change.
type Cell struct {
	address CellAddress
	owner   *PropertySheet

	used           UsedBit
	expr           expression.Expression
	alignment      Alignment
	style          []string
	foreground     Color
	background     Color
	displayUnit    DisplayUnit
	alias          string
	computedUnit   expression.Unit
	rowSpan        int
	colSpan        int
	editMode       EditMode
	editPersistent bool
	exception      string

	// evaluation state, maintained by the sheet
	value         any
	valueErr      error
	computed      bool
	evalException bool
}

func newCell(addr CellAddress, owner *PropertySheet) *Cell {
	return &Cell{
		address:    addr,
		owner:      owner,
		alignment:  DefaultAlignment,
		foreground: Black,
		background: White,
		rowSpan:    1,
		colSpan:    1,
	}
}

// Address returns the cell's address.
func (c *Cell) Address() CellAddress { return c.address }

// Sheet returns the owning sheet.
func (c *Cell) Sheet() *PropertySheet { return c.owner }

func (c *Cell) setUsed(bit UsedBit, on bool) {
	if on {
		c.used |= bit
	} else {
		c.used &^= bit
	}
}

// IsUsed reports whether any persistent attribute differs from its default.
func (c *Cell) IsUsed() bool { return c.used&usedContent != 0 }

// IsUsedFor reports whether any attribute in mask differs from its default.
func (c *Cell) IsUsedFor(mask UsedBit) bool { return c.used&mask != 0 }

func (c *Cell) setDirty() {
	c.owner.setDirty(c.address)
}

// Expression returns the stored expression, or nil for an empty cell.
func (c *Cell) Expression() expression.Expression { return c.expr }

// Alignment returns the alignment bits.
func (c *Cell) Alignment() Alignment { return c.alignment }

// SetAlignment sets the alignment bits.
func (c *Cell) SetAlignment(a Alignment) {
	if a == c.alignment {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.alignment = a
	c.setUsed(UsedAlignment, a != DefaultAlignment)
	c.setDirty()
}

// Style returns the sorted style tags, such as "bold" or "italic".
func (c *Cell) Style() []string { return slices.Clone(c.style) }

// SetStyle replaces the style tags.
func (c *Cell) SetStyle(tags []string) {
	tags = normalizeStyle(tags)
	if slices.Equal(tags, c.style) {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.style = tags
	c.setUsed(UsedStyle, len(tags) > 0)
	c.setDirty()
}

// Foreground returns the text color.
func (c *Cell) Foreground() Color { return c.foreground }

// SetForeground sets the text color.
func (c *Cell) SetForeground(col Color) {
	if col == c.foreground {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.foreground = col
	c.setUsed(UsedForeground, col != Black)
	c.setDirty()
}

// Background returns the fill color.
func (c *Cell) Background() Color { return c.background }

// SetBackground sets the fill color.
func (c *Cell) SetBackground(col Color) {
	if col == c.background {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.background = col
	c.setUsed(UsedBackground, col != White)
	c.setDirty()
}

// DisplayUnit returns the display unit.
func (c *Cell) DisplayUnit() DisplayUnit { return c.displayUnit }

// SetDisplayUnit parses and sets the display unit. An empty string clears it.
func (c *Cell) SetDisplayUnit(text string) error {
	du, err := ParseDisplayUnit(text)
	if err != nil {
		return &CellError{Address: c.address, Err: err}
	}
	c.setDisplayUnit(du)
	return nil
}

func (c *Cell) setDisplayUnit(du DisplayUnit) {
	if du.Text == c.displayUnit.Text {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.displayUnit = du
	c.setUsed(UsedDisplayUnit, !du.IsEmpty())
	c.setDirty()
}

// ComputedUnit returns the unit of the last evaluated quantity.
func (c *Cell) ComputedUnit() expression.Unit { return c.computedUnit }

// SetComputedUnit records the unit of the evaluated value.
func (c *Cell) SetComputedUnit(u expression.Unit) {
	if u == c.computedUnit {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.computedUnit = u
	c.setUsed(UsedComputedUnit, !u.IsEmpty())
	c.setDirty()
}

// Spans returns the row and column span.
func (c *Cell) Spans() (rows, cols int) { return c.rowSpan, c.colSpan }

// SetSpans sets how many rows and columns the cell covers. Values below 1
// are treated as 1.
func (c *Cell) SetSpans(rows, cols int) {
	rows, cols = max(rows, 1), max(cols, 1)
	if rows == c.rowSpan && cols == c.colSpan {
		return
	}
	defer c.owner.AtomicChange().Close()
	c.rowSpan, c.colSpan = rows, cols
	c.setUsed(UsedSpans, rows != 1 || cols != 1)
	c.setDirty()
}

// Alias returns the cell's alias, or "".
func (c *Cell) Alias() string { return c.alias }

// IsMarked reports the transient mark flag.
func (c *Cell) IsMarked() bool { return c.used&usedMark != 0 }

// SetMark sets the transient mark flag. It is never copied or saved.
func (c *Cell) SetMark(on bool) { c.setUsed(usedMark, on) }

// Exception returns the exception message, or "".
func (c *Cell) Exception() string {
	if !c.HasException() {
		return ""
	}
	return c.exception
}

// HasException reports whether any exception kind is set.
func (c *Cell) HasException() bool {
	return c.used&(usedException|usedParseException|usedResolveException) != 0
}

// HasParseException reports whether the content failed to parse.
func (c *Cell) HasParseException() bool { return c.used&usedParseException != 0 }

// HasResolveException reports whether a reference or alias failed to resolve.
func (c *Cell) HasResolveException() bool { return c.used&usedResolveException != 0 }

// SetException records a generic exception.
func (c *Cell) SetException(msg string) {
	c.setException(usedException, msg)
}

// SetParseException records a parse exception.
func (c *Cell) SetParseException(msg string) {
	c.setException(usedParseException, msg)
}

// SetResolveException records a resolve exception.
func (c *Cell) SetResolveException(msg string) {
	c.setException(usedResolveException, msg)
}

func (c *Cell) setException(kind UsedBit, msg string) {
	if msg != "" && c.owner.log != nil {
		c.owner.log.Debug("cell exception", "cell", c.address, "message", msg)
	}
	defer c.owner.AtomicChange().Close()
	c.exception = msg
	c.evalException = false
	c.setUsed(kind, true)
	c.setDirty()
}

// ClearException clears all exception kinds.
func (c *Cell) ClearException() {
	defer c.owner.AtomicChange().Close()
	c.exception = ""
	c.evalException = false
	c.setUsed(usedException|usedParseException|usedResolveException, false)
	c.setDirty()
}

// ClearResolveException clears only the resolve kind.
func (c *Cell) ClearResolveException() {
	defer c.owner.AtomicChange().Close()
	c.setUsed(usedResolveException, false)
	c.setDirty()
}

// Format is a snapshot of a cell's formatting attributes.
type Format struct {
	Alignment      Alignment
	Style          []string
	Foreground     Color
	Background     Color
	DisplayUnit    DisplayUnit
	RowSpan        int
	ColSpan        int
	EditMode       EditMode
	EditPersistent bool
}

// DefaultFormat returns the format of a fresh cell.
func DefaultFormat() Format {
	return Format{Alignment: DefaultAlignment, Foreground: Black, Background: White, RowSpan: 1, ColSpan: 1}
}

// Format returns a deep copy of the cell's formatting.
func (c *Cell) Format() Format {
	src := Format{
		Alignment:      c.alignment,
		Style:          c.style,
		Foreground:     c.foreground,
		Background:     c.background,
		DisplayUnit:    c.displayUnit,
		RowSpan:        c.rowSpan,
		ColSpan:        c.colSpan,
		EditMode:       c.editMode,
		EditPersistent: c.editPersistent,
	}
	var dst Format
	if err := deepcopy.Copy(&dst, &src); err != nil {
		// plain exported fields only; a failure means a programming error
		panic(fmt.Sprintf("copy format: %v", err))
	}
	return dst
}

// SetFormat applies every attribute of f.
func (c *Cell) SetFormat(f Format) {
	defer c.owner.AtomicChange().Close()
	c.SetAlignment(f.Alignment)
	c.SetStyle(f.Style)
	c.SetForeground(f.Foreground)
	c.SetBackground(f.Background)
	c.setDisplayUnit(f.DisplayUnit)
	c.SetSpans(f.RowSpan, f.ColSpan)
	if _, err := c.SetEditMode(f.EditMode, true); err == nil {
		c.SetPersistentEditMode(f.EditPersistent)
	}
}

// copyFrom makes c an equivalent of other: expression deep-copied and
// format copied. The alias, the mark and evaluation state are not copied.
func (c *Cell) copyFrom(other *Cell) {
	defer c.owner.AtomicChange().Close()
	var e expression.Expression
	if other.expr != nil {
		e = other.expr.Copy()
	}
	c.SetFormat(other.Format())
	if err := c.SetExpression(e, PasteFormula); err != nil {
		c.SetException(err.Error())
	}
	if other.HasException() {
		c.exception = other.exception
		c.used |= other.used & (usedException | usedParseException | usedResolveException)
	}
}
