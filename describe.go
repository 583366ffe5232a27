package paramsheet

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Describe returns a human-readable listing of the sheet: every cell with
// its content, alias, edit mode, value and exception, followed by the alias
// table. Useful for debugging sheets during development.
func (s *PropertySheet) Describe() string {
	s.Recompute()

	var b strings.Builder
	fmt.Fprintf(&b, "Sheet %s", s.id)
	if r, ok := s.UsedRange(); ok {
		fmt.Fprintf(&b, " %s (%dx%d)", r, r.Rows(), r.Cols())
	}
	fmt.Fprintf(&b, ", %d cells\n", len(s.cells))

	for _, c := range s.sortedCells() {
		s.describeCell(&b, c)
	}

	if len(s.revAlias) > 0 {
		b.WriteString("  Aliases:\n")
		for _, name := range slices.Sorted(maps.Keys(s.revAlias)) {
			fmt.Fprintf(&b, "    %s -> %s\n", name, s.revAlias[name])
		}
	}
	return b.String()
}

func (s *PropertySheet) describeCell(b *strings.Builder, c *Cell) {
	fmt.Fprintf(b, "  %s", c.address)
	if c.alias != "" {
		fmt.Fprintf(b, " [%s]", c.alias)
	}
	if content := c.StringContent(); content != "" {
		fmt.Fprintf(b, ": %s", content)
	}
	b.WriteString(describeAttrs(c))
	b.WriteByte('\n')

	switch {
	case c.HasException():
		fmt.Fprintf(b, "      ! %s: %s\n", exceptionKind(c), c.Exception())
	case c.expr != nil:
		if v, err := s.cellValue(c.address); err == nil {
			fmt.Fprintf(b, "      = %s\n", displayString(v))
		}
	}
	if deps := s.Precedents(c.address); len(deps) > 0 {
		names := make([]string, len(deps))
		for i, a := range deps {
			names[i] = a.String()
		}
		fmt.Fprintf(b, "      reads %s\n", strings.Join(names, ", "))
	}
}

// describeAttrs returns the non-default formatting of a cell for display.
func describeAttrs(c *Cell) string {
	var parts []string
	if c.editMode != EditNormal {
		mode := c.editMode.String()
		if c.editPersistent {
			mode += ",persistent"
		}
		parts = append(parts, fmt.Sprintf("mode=%s", mode))
	}
	if c.IsUsedFor(UsedDisplayUnit) {
		parts = append(parts, fmt.Sprintf("unit=%q", c.displayUnit.Text))
	}
	if c.IsUsedFor(UsedSpans) {
		parts = append(parts, fmt.Sprintf("span=%dx%d", c.rowSpan, c.colSpan))
	}
	if c.IsUsedFor(UsedStyle) {
		parts = append(parts, fmt.Sprintf("style=%s", encodeStyle(c.style)))
	}
	if c.IsUsedFor(UsedAlignment) {
		parts = append(parts, fmt.Sprintf("align=%s", c.alignment))
	}
	if c.IsUsedFor(UsedForeground) {
		parts = append(parts, fmt.Sprintf("fg=%s", c.foreground))
	}
	if c.IsUsedFor(UsedBackground) {
		parts = append(parts, fmt.Sprintf("bg=%s", c.background))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
