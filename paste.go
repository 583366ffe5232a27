package paramsheet

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/javajack/paramsheet/expression"
)

// Clip is a block of copied cells. Cell addresses are relative to Origin,
// the top left corner of the copied range.
type Clip struct {
	Origin     CellAddress
	Rows, Cols int
	cells      []cellXML
}

// Len returns the number of non-empty cells in the clip.
func (c *Clip) Len() int { return len(c.cells) }

// MarshalText encodes the clip as a <Sheet> document.
func (c *Clip) MarshalText() ([]byte, error) {
	doc := clipXML{Origin: c.Origin.String(), Rows: c.Rows, Cols: c.Cols, Cells: c.cells}
	return xml.Marshal(doc)
}

// UnmarshalText decodes a clip written by MarshalText.
func (c *Clip) UnmarshalText(b []byte) error {
	var doc clipXML
	if err := xml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode clip: %w", err)
	}
	origin, err := ParseAddress(doc.Origin)
	if err != nil {
		return fmt.Errorf("decode clip: %w", err)
	}
	c.Origin, c.Rows, c.Cols, c.cells = origin, doc.Rows, doc.Cols, doc.Cells
	return nil
}

type clipXML struct {
	XMLName xml.Name  `xml:"Sheet"`
	Origin  string    `xml:"origin,attr"`
	Rows    int       `xml:"rows,attr"`
	Cols    int       `xml:"cols,attr"`
	Cells   []cellXML `xml:"Cell"`
}

// Copy captures the cells of r.
func (s *PropertySheet) Copy(r Range) *Clip {
	clip := &Clip{Origin: r.From, Rows: r.Rows(), Cols: r.Cols()}
	s.Range(r, func(c *Cell) bool {
		x := c.toXML()
		x.Address = c.address.Offset(-r.From.Row, -r.From.Col).String()
		clip.cells = append(clip.cells, x)
		return true
	})
	return clip
}

// Paste writes clip with its top left corner at at. paste selects value,
// formula and format parts. Cells of the target block that are empty in the
// clip are cleared. Relative references in pasted formulas move with the
// paste offset; absolute ($) parts are kept.
func (s *PropertySheet) Paste(clip *Clip, at CellAddress, paste PasteType) error {
	if clip == nil {
		return nil
	}
	target := Range{From: at, To: at.Offset(clip.Rows-1, clip.Cols-1)}
	if !target.To.IsValid(s.opts.maxRows, s.opts.maxCols) || !at.IsValid(s.opts.maxRows, s.opts.maxCols) {
		return &CellError{Address: target.To, Err: ErrOutOfBounds}
	}
	byAddr := make(map[CellAddress]cellXML, len(clip.cells))
	for _, x := range clip.cells {
		rel, err := ParseAddress(x.Address)
		if err != nil {
			return fmt.Errorf("paste: %w", err)
		}
		byAddr[at.Offset(rel.Row, rel.Col)] = x
	}

	dr, dc := at.Row-clip.Origin.Row, at.Col-clip.Origin.Col
	defer s.AtomicChange().Close()
	for _, a := range target.Addresses() {
		x, ok := byAddr[a]
		c := s.cells[a]
		if !ok {
			if c == nil {
				continue
			}
			if paste.Has(PasteFormula) || paste.Has(PasteValue) {
				c.SetContent("", false)
			}
			if paste.Has(PasteFormat) {
				c.SetFormat(DefaultFormat())
			}
			s.prune(c)
			continue
		}
		c, err := s.CreateCell(a)
		if err != nil {
			return err
		}
		if paste.Has(PasteFormat) {
			c.SetFormat(DefaultFormat())
			c.restoreFormat(x, true)
		}
		if paste.Has(PasteFormula) || paste.Has(PasteValue) {
			c.SetContent(x.content(), false)
			if dr != 0 || dc != 0 {
				c.offsetReferences(dr, dc)
			}
			if paste.Has(PasteValue) && c.expr != nil && !c.HasException() {
				if err := c.SetExpression(c.expr, PasteValue); err != nil {
					c.SetException(err.Error())
				}
			}
		}
		s.prune(c)
	}
	s.log.Debug("paste", "at", at, "cells", len(clip.cells), "type", int(paste))
	return nil
}

// offsetReferences shifts the relative parts of every address reference.
func (c *Cell) offsetReferences(dr, dc int) {
	if c.expr == nil || c.HasParseException() {
		return
	}
	maxRows, maxCols := c.owner.opts.maxRows, c.owner.opts.maxCols
	shifted := expression.RenameReferences(c.expr, func(tok string) (string, bool) {
		a, err := ParseAddress(tok)
		if err != nil {
			return "", false
		}
		colAbs := strings.HasPrefix(tok, "$")
		rowAbs := strings.Contains(strings.TrimPrefix(tok, "$"), "$")
		to := a
		if !rowAbs {
			to.Row += dr
		}
		if !colAbs {
			to.Col += dc
		}
		if !to.IsValid(maxRows, maxCols) {
			return deletedRefPrefix + strings.ReplaceAll(tok, "$", ""), true
		}
		return formatRef(to, tok), true
	})
	c.storeExpression(shifted)
}

// CopyText writes r to the clipboard as tab-separated text. Formatted cells
// carry their format as a /*<Cell .../>*/ header on a formula.
func (s *PropertySheet) CopyText(r Range) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	for row := r.From.Row; row <= r.To.Row; row++ {
		record := make([]string, 0, r.Cols())
		for col := r.From.Col; col <= r.To.Col; col++ {
			record = append(record, s.cellText(NewAddress(row, col)))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("copy text: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("copy text: %w", err)
	}
	return s.opts.clipboard.WriteText(buf.String())
}

// cellText is the clipboard form of one cell.
func (s *PropertySheet) cellText(a CellAddress) string {
	c := s.cells[a]
	if c == nil {
		return ""
	}
	e := c.ExpressionWithFormat()
	if e == c.expr || c.HasParseException() {
		return c.StringContent()
	}
	return "=" + expression.Text(e)
}

// PasteText reads tab-separated text from the clipboard and writes it with
// its first field at at.
func (s *PropertySheet) PasteText(at CellAddress, paste PasteType) error {
	text, err := s.opts.clipboard.ReadText()
	if err != nil {
		return err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("paste text: %w", err)
	}

	defer s.AtomicChange().Close()
	for i, record := range records {
		for j, field := range record {
			a := at.Offset(i, j)
			if field == "" && s.cells[a] == nil {
				continue
			}
			c, err := s.CreateCell(a)
			if err != nil {
				return err
			}
			s.pasteField(c, field, paste)
			s.prune(c)
		}
	}
	s.log.Debug("paste text", "at", at, "rows", len(records), "type", strconv.Itoa(int(paste)))
	return nil
}

func (s *PropertySheet) pasteField(c *Cell, field string, paste PasteType) {
	if !strings.HasPrefix(field, "=") {
		if paste.Has(PasteFormula) || paste.Has(PasteValue) {
			c.SetContent(field, paste.Has(PasteValue))
		}
		return
	}
	e, err := expression.Parse(field[1:])
	if err == nil {
		if c.HasException() {
			c.ClearException()
		}
		err = c.SetExpression(e, paste)
	}
	if err != nil {
		c.SetContent(field, false)
		return
	}
	c.applyAutoAlias()
}
