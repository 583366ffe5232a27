package paramsheet

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/javajack/paramsheet/expression"
)

// cellXML is the <Cell> element. Attributes at their default are omitted.
type cellXML struct {
	XMLName         xml.Name `xml:"Cell"`
	Address         string   `xml:"address,attr,omitempty"`
	Content         string   `xml:"content,attr,omitempty"`
	CDATA           string   `xml:"cdata,attr,omitempty"`
	Alignment       string   `xml:"alignment,attr,omitempty"`
	Style           string   `xml:"style,attr,omitempty"`
	ForegroundColor string   `xml:"foregroundColor,attr,omitempty"`
	BackgroundColor string   `xml:"backgroundColor,attr,omitempty"`
	DisplayUnit     string   `xml:"displayUnit,attr,omitempty"`
	Alias           string   `xml:"alias,attr,omitempty"`
	RowSpan         int      `xml:"rowSpan,attr,omitempty"`
	ColSpan         int      `xml:"colSpan,attr,omitempty"`
	EditMode        int      `xml:"editMode,attr,omitempty"`
	EditModeName    string   `xml:"editModeName,attr,omitempty"`
	EditPersistent  string   `xml:"editPersistent,attr,omitempty"`
	Text            string   `xml:",cdata"`
}

// sheetXML is the <Sheet> document written by Save.
type sheetXML struct {
	XMLName xml.Name  `xml:"Sheet"`
	Count   int       `xml:"count,attr"`
	Cells   []cellXML `xml:"Cell"`
}

// content returns the cell text of the element.
func (x *cellXML) content() string {
	if x.CDATA == "1" {
		return x.Text
	}
	return x.Content
}

// formatXML encodes the formatting attributes that differ from the defaults.
func (c *Cell) formatXML() cellXML {
	var x cellXML
	if c.IsUsedFor(UsedAlignment) {
		x.Alignment = c.alignment.String()
	}
	if c.IsUsedFor(UsedStyle) {
		x.Style = encodeStyle(c.style)
	}
	if c.IsUsedFor(UsedForeground) {
		x.ForegroundColor = c.foreground.String()
	}
	if c.IsUsedFor(UsedBackground) {
		x.BackgroundColor = c.background.String()
	}
	if c.IsUsedFor(UsedDisplayUnit) {
		x.DisplayUnit = c.displayUnit.Text
	}
	if c.IsUsedFor(UsedAlias) {
		x.Alias = c.alias
	}
	if c.IsUsedFor(UsedSpans) {
		x.RowSpan, x.ColSpan = c.rowSpan, c.colSpan
	}
	if c.editMode != EditNormal {
		x.EditMode = int(c.editMode)
		x.EditModeName = c.editMode.String()
		if c.editPersistent {
			x.EditPersistent = "1"
		}
	}
	return x
}

// toXML encodes the cell with its address and content.
func (c *Cell) toXML() cellXML {
	x := c.formatXML()
	x.Address = c.address.String()
	if c.IsUsedFor(UsedExpression) {
		content := c.StringContent()
		if strings.Contains(content, "\n") {
			x.CDATA, x.Text = "1", content
		} else {
			x.Content = content
		}
	}
	return x
}

// formatHeader renders the formatting as a <Cell .../> element for use in
// a leading expression comment.
func (c *Cell) formatHeader() string {
	b, err := xml.Marshal(c.formatXML())
	if err != nil {
		return ""
	}
	return string(b)
}

// restoreFormatHeader applies a <Cell .../> header taken from a comment.
func (c *Cell) restoreFormatHeader(header string) error {
	var x cellXML
	if err := xml.Unmarshal([]byte(header), &x); err != nil {
		return fmt.Errorf("parse format header: %w", err)
	}
	c.restoreFormat(x, true)
	return nil
}

// restoreFormat applies the attributes present in x. With checkAlias, an
// alias already held elsewhere is ignored; otherwise it is taken over.
func (c *Cell) restoreFormat(x cellXML, checkAlias bool) {
	s := c.owner
	defer s.AtomicChange().Close()

	if x.Style != "" {
		c.SetStyle(decodeStyle(x.Style))
	}
	if x.Alignment != "" {
		var a Alignment
		for _, tok := range strings.Split(x.Alignment, "|") {
			next, err := DecodeAlignment(tok, a)
			if err != nil {
				s.log.Warn("ignoring alignment", "cell", c.address, "error", err)
				continue
			}
			a = next
		}
		c.SetAlignment(a)
	}
	if x.ForegroundColor != "" {
		c.SetForeground(decodeColor(x.ForegroundColor, Black))
	}
	if x.BackgroundColor != "" {
		c.SetBackground(decodeColor(x.BackgroundColor, White))
	}
	if x.DisplayUnit != "" {
		if err := c.SetDisplayUnit(x.DisplayUnit); err != nil {
			s.log.Warn("ignoring display unit", "cell", c.address, "error", err)
		}
	}
	if x.Alias != "" {
		if !checkAlias {
			c.setAliasUnchecked(x.Alias)
		} else if _, taken := s.revAlias[x.Alias]; !taken {
			_ = c.SetAlias(x.Alias, true)
		}
	}
	if x.RowSpan != 0 || x.ColSpan != 0 {
		c.SetSpans(max(x.RowSpan, 1), max(x.ColSpan, 1))
	}

	c.editMode = EditNormal
	switch {
	case x.EditModeName != "":
		_, _ = c.SetEditModeName(x.EditModeName, true)
	case EditMode(x.EditMode).IsValid():
		c.editMode = EditMode(x.EditMode)
	}
	c.editPersistent = x.EditPersistent == "1"
}

// restore applies the parts of x selected by paste.
func (c *Cell) restore(x cellXML, checkAlias bool, paste PasteType) {
	defer c.owner.AtomicChange().Close()
	if paste.Has(PasteFormat) {
		c.restoreFormat(x, checkAlias)
	}
	if !paste.Has(PasteFormula) && !paste.Has(PasteValue) {
		return
	}
	c.SetContent(x.content(), paste.Has(PasteValue))
}

// afterRestore parses the raw text stored while restoring.
func (c *Cell) afterRestore() {
	if e, ok := c.expr.(*expression.StringExpr); ok {
		c.SetContent(e.Text, false)
	}
}

// Save writes every cell as a <Sheet> document of <Cell> elements.
func (s *PropertySheet) Save(w io.Writer) error {
	doc := sheetXML{}
	for _, c := range s.sortedCells() {
		if !c.IsUsed() && c.editMode == EditNormal {
			continue
		}
		doc.Cells = append(doc.Cells, c.toXML())
	}
	doc.Count = len(doc.Cells)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	return nil
}

// Restore replaces the sheet's cells with a document written by Save and
// recomputes. Content is parsed only after every cell is in place, so
// references and aliases resolve regardless of document order.
func (s *PropertySheet) Restore(r io.Reader) error {
	var doc sheetXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("restore sheet: %w", err)
	}
	addrs := make([]CellAddress, len(doc.Cells))
	for i, x := range doc.Cells {
		a, err := ParseAddress(x.Address)
		if err != nil {
			return fmt.Errorf("restore sheet: cell %d: %w", i, err)
		}
		if !a.IsValid(s.opts.maxRows, s.opts.maxCols) {
			return fmt.Errorf("restore sheet: %w", &CellError{Address: a, Err: ErrOutOfBounds})
		}
		addrs[i] = a
	}

	defer s.AtomicChange().Close()
	for _, a := range s.UsedCells() {
		s.RemoveCell(a)
	}

	s.restoring = true
	for i, x := range doc.Cells {
		c, _ := s.CreateCell(addrs[i])
		c.restore(x, false, PasteAll)
	}
	s.restoring = false

	for _, c := range s.sortedCells() {
		c.afterRestore()
	}
	s.log.Info("sheet restored", "cells", len(doc.Cells))
	s.Recompute()
	return nil
}
