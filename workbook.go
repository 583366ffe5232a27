package paramsheet

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/javajack/paramsheet/expression"
)

// DefaultWorkbookSheet is the worksheet name used by ExportWorkbook when
// none is given.
const DefaultWorkbookSheet = "Sheet1"

// aliasComment marks defined names written for aliases.
const aliasComment = "paramsheet alias"

// ExportWorkbook writes the sheet as an xlsx workbook with one worksheet.
// Aliases become defined names, spans become merged ranges and the
// formatting is mapped to cell styles. Formulas that have a workbook
// equivalent are written as formulas with their computed value; other
// expressions are written as their text content.
func (s *PropertySheet) ExportWorkbook(w io.Writer, sheet string) error {
	if sheet == "" {
		sheet = DefaultWorkbookSheet
	}
	f := excelize.NewFile()
	defer f.Close()
	if sheet != DefaultWorkbookSheet {
		if err := f.SetSheetName(DefaultWorkbookSheet, sheet); err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
	}

	s.Recompute()
	for _, c := range s.sortedCells() {
		if err := s.exportCell(f, sheet, c); err != nil {
			return fmt.Errorf("export workbook: cell %s: %w", c.address, err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(s.revAlias)) {
		a := s.revAlias[name]
		err := f.SetDefinedName(&excelize.DefinedName{
			Name:     name,
			Comment:  aliasComment,
			RefersTo: fmt.Sprintf("'%s'!%s", sheet, formatRef(a, "$A$1")),
		})
		if err != nil {
			s.log.Warn("skipping alias in workbook", "alias", name, "error", err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}
	s.log.Info("workbook exported", "worksheet", sheet, "cells", len(s.cells))
	return nil
}

func (s *PropertySheet) exportCell(f *excelize.File, sheet string, c *Cell) error {
	name := c.address.String()
	if err := s.exportContent(f, sheet, name, c); err != nil {
		return err
	}
	if c.IsUsedFor(UsedSpans) {
		end := c.address.Offset(c.rowSpan-1, c.colSpan-1)
		if err := f.MergeCell(sheet, name, end.String()); err != nil {
			return err
		}
	}
	if !c.IsUsedFor(UsedAlignment | UsedStyle | UsedForeground | UsedBackground) {
		return nil
	}
	id, err := f.NewStyle(excelStyle(c))
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, name, name, id)
}

func (s *PropertySheet) exportContent(f *excelize.File, sheet, name string, c *Cell) error {
	switch e := c.expr.(type) {
	case nil:
		return nil
	case *expression.NumberExpr:
		if e.Quantity.Unit.IsEmpty() {
			return f.SetCellFloat(sheet, name, e.Quantity.Value, -1, 64)
		}
	case *expression.BoolExpr:
		return f.SetCellBool(sheet, name, e.Value)
	case *expression.FormulaExpr:
		if c.HasException() {
			break
		}
		formula, err := s.ToExcelFormula(e.Text)
		if err != nil {
			s.log.Debug("writing formula as text", "cell", c.address, "error", err)
			break
		}
		if v, err := s.cellValue(c.address); err == nil {
			if q, ok := expression.AsQuantity(v); ok && q.Unit.IsEmpty() {
				if err := f.SetCellFloat(sheet, name, q.Value, -1, 64); err != nil {
					return err
				}
			}
		}
		return f.SetCellFormula(sheet, name, formula)
	}
	return f.SetCellStr(sheet, name, c.StringContent())
}

// excelStyle maps the cell formatting to a workbook style.
func excelStyle(c *Cell) *excelize.Style {
	st := &excelize.Style{Font: &excelize.Font{}, Alignment: &excelize.Alignment{}}
	for _, tag := range c.style {
		switch tag {
		case "bold":
			st.Font.Bold = true
		case "italic":
			st.Font.Italic = true
		case "underline":
			st.Font.Underline = "single"
		}
	}
	if c.IsUsedFor(UsedForeground) {
		st.Font.Color = hexRGB(c.foreground)
	}
	if c.IsUsedFor(UsedBackground) {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hexRGB(c.background)}}
	}
	if c.IsUsedFor(UsedAlignment) {
		switch {
		case c.alignment&AlignHCenter != 0:
			st.Alignment.Horizontal = "center"
		case c.alignment&AlignRight != 0:
			st.Alignment.Horizontal = "right"
		default:
			st.Alignment.Horizontal = "left"
		}
		switch {
		case c.alignment&AlignTop != 0:
			st.Alignment.Vertical = "top"
		case c.alignment&AlignBottom != 0:
			st.Alignment.Vertical = "bottom"
		default:
			st.Alignment.Vertical = "center"
		}
	}
	return st
}

// hexRGB drops the alpha channel of the "#rrggbbaa" encoding.
func hexRGB(col Color) string {
	return strings.ToUpper(col.String()[1:7])
}

// excelColor decodes "RRGGBB" or "AARRGGBB".
func excelColor(s string) (Color, bool) {
	if len(s) == 8 {
		s = s[2:]
	}
	col, err := ParseColor("#" + s)
	return col, err == nil
}

// ImportWorkbook replaces the sheet's cells with the contents of one
// worksheet of an xlsx workbook. An empty name selects the first worksheet.
// Defined names referring to single cells of that worksheet become aliases.
func (s *PropertySheet) ImportWorkbook(r io.Reader, sheet string) error {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("import workbook: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("import workbook: read rows from %q: %w", sheet, err)
	}

	defer s.AtomicChange().Close()
	for _, a := range s.UsedCells() {
		s.RemoveCell(a)
	}

	var skipped int
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			a := NewAddress(rowIdx, colIdx)
			if err := s.importCell(f, sheet, a, value); err != nil {
				if errors.Is(err, ErrOutOfBounds) {
					skipped++
					continue
				}
				return fmt.Errorf("import workbook: cell %s: %w", a, err)
			}
		}
	}
	if err := s.importMerges(f, sheet); err != nil {
		return fmt.Errorf("import workbook: %w", err)
	}
	s.importNames(f, sheet)
	if skipped > 0 {
		s.log.Warn("cells outside sheet bounds skipped", "count", skipped)
	}
	s.Recompute()
	s.log.Info("workbook imported", "worksheet", sheet, "cells", len(s.cells))
	return nil
}

func (s *PropertySheet) importCell(f *excelize.File, sheet string, a CellAddress, value string) error {
	name := a.String()
	formula, err := f.GetCellFormula(sheet, name)
	if err != nil {
		return err
	}
	styleID, err := f.GetCellStyle(sheet, name)
	if err != nil {
		return err
	}
	if value == "" && formula == "" && styleID == 0 {
		return nil
	}
	c, err := s.CreateCell(a)
	if err != nil {
		return err
	}

	switch {
	case formula != "":
		text, err := FromExcelFormula(formula)
		if err != nil {
			s.log.Warn("formula kept as text", "cell", a, "formula", formula, "error", err)
			c.SetContent("'="+formula, false)
			break
		}
		c.SetContent("="+text, false)
	case value != "":
		typ, err := f.GetCellType(sheet, name)
		if err != nil {
			return err
		}
		if typ == excelize.CellTypeBool {
			value = "=" + strconv.FormatBool(value == "1" || strings.EqualFold(value, "true"))
		}
		c.SetContent(value, false)
	}

	if styleID != 0 {
		st, err := f.GetStyle(styleID)
		if err != nil {
			return err
		}
		applyExcelStyle(c, st)
	}
	s.prune(c)
	return nil
}

// applyExcelStyle maps a workbook style back onto the cell formatting.
func applyExcelStyle(c *Cell, st *excelize.Style) {
	if st.Font != nil {
		var tags []string
		if st.Font.Bold {
			tags = append(tags, "bold")
		}
		if st.Font.Italic {
			tags = append(tags, "italic")
		}
		if st.Font.Underline != "" {
			tags = append(tags, "underline")
		}
		if len(tags) > 0 {
			c.SetStyle(tags)
		}
		if col, ok := excelColor(st.Font.Color); ok {
			c.SetForeground(col)
		}
	}
	if st.Fill.Type == "pattern" && len(st.Fill.Color) > 0 {
		if col, ok := excelColor(st.Fill.Color[0]); ok {
			c.SetBackground(col)
		}
	}
	if st.Alignment == nil || (st.Alignment.Horizontal == "" && st.Alignment.Vertical == "") {
		return
	}
	a := DefaultAlignment
	switch st.Alignment.Horizontal {
	case "center", "centerContinuous":
		a, _ = DecodeAlignment("center", a&^AlignHImplied)
	case "right":
		a, _ = DecodeAlignment("right", a&^AlignHImplied)
	case "left":
		a, _ = DecodeAlignment("left", a&^AlignHImplied)
	}
	switch st.Alignment.Vertical {
	case "top":
		a, _ = DecodeAlignment("top", a&^AlignVImplied)
	case "bottom":
		a, _ = DecodeAlignment("bottom", a&^AlignVImplied)
	case "center":
		a, _ = DecodeAlignment("vcenter", a&^AlignVImplied)
	}
	c.SetAlignment(a)
}

func (s *PropertySheet) importMerges(f *excelize.File, sheet string) error {
	merges, err := f.GetMergeCells(sheet, true)
	if err != nil {
		return fmt.Errorf("read merged cells: %w", err)
	}
	for _, m := range merges {
		r, err := ParseRange(m.GetStartAxis() + ":" + m.GetEndAxis())
		if err != nil {
			return err
		}
		c, err := s.CreateCell(r.From)
		if err != nil {
			s.log.Warn("skipping merged range", "range", r, "error", err)
			continue
		}
		c.SetSpans(r.Rows(), r.Cols())
	}
	return nil
}

func (s *PropertySheet) importNames(f *excelize.File, sheet string) {
	for _, dn := range f.GetDefinedName() {
		if dn.Scope != "" && dn.Scope != "Workbook" && dn.Scope != sheet {
			continue
		}
		target, ok := strings.CutPrefix(dn.RefersTo, "'"+sheet+"'!")
		if !ok {
			target, ok = strings.CutPrefix(dn.RefersTo, sheet+"!")
		}
		if !ok {
			continue
		}
		a, err := ParseAddress(strings.ReplaceAll(target, "$", ""))
		if err != nil {
			s.log.Debug("defined name is not a single cell", "name", dn.Name, "refersTo", dn.RefersTo)
			continue
		}
		if err := s.SetAlias(a, dn.Name, false); err != nil {
			s.log.Warn("defined name not imported", "name", dn.Name, "error", err)
		}
	}
}
