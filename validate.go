package paramsheet

import (
	"fmt"
	"strings"

	"github.com/javajack/paramsheet/expression"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Cell cannot produce a value
	SeverityWarning                 // Cell may produce unexpected results
)

// ValidationIssue represents a single problem found in a sheet.
type ValidationIssue struct {
	Severity Severity
	Cell     CellAddress
	Message  string
}

// String formats the issue as "[ERROR] A2: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.Cell, v.Message)
}

// Validate recomputes the sheet and reports cell exceptions, dependency
// cycles, references that resolve to nothing, spans that run off the sheet
// or cover content, and edit modes whose content has the wrong shape.
// Issues are ordered by cell.
func (s *PropertySheet) Validate() []ValidationIssue {
	s.Recompute()

	_, cyclic := s.graph.calculationOrder(s.UsedCells(), s.Precedents)
	onCycle := make(map[CellAddress]bool, len(cyclic))
	for _, a := range cyclic {
		onCycle[a] = true
	}

	var issues []ValidationIssue
	for _, c := range s.sortedCells() {
		if onCycle[c.address] {
			issues = append(issues, ValidationIssue{SeverityError, c.address, "cell is part of a dependency cycle"})
		}
		if msg := c.Exception(); msg != "" && !onCycle[c.address] {
			issues = append(issues, ValidationIssue{SeverityError, c.address, exceptionKind(c) + ": " + msg})
		}
		issues = append(issues, s.validateReferences(c)...)
		issues = append(issues, s.validateSpans(c)...)
		if mode := c.StoredEditMode(); mode != EditNormal && !mode.IsAutoAlias() && !c.HasException() {
			if err := c.checkShape(mode); err != nil {
				issues = append(issues, ValidationIssue{SeverityWarning, c.address, fmt.Sprintf("%s mode: %v", mode, err)})
			}
		}
	}
	return issues
}

func exceptionKind(c *Cell) string {
	switch {
	case c.HasParseException():
		return "parse error"
	case c.HasResolveException():
		return "unresolved"
	}
	return "error"
}

// validateReferences reports references that point at deleted cells and
// names that are neither cells, aliases, units nor container properties.
func (s *PropertySheet) validateReferences(c *Cell) []ValidationIssue {
	if c.expr == nil || c.HasParseException() {
		return nil
	}
	var issues []ValidationIssue
	for _, ref := range expression.References(c.expr) {
		switch {
		case strings.Contains(ref, deletedRefPrefix):
			issues = append(issues, ValidationIssue{SeverityError, c.address, fmt.Sprintf("reference %q points at a deleted cell", ref)})
		case strings.Contains(ref, ":"):
			if _, ok := rangeRef(ref); !ok {
				issues = append(issues, ValidationIssue{SeverityError, c.address, fmt.Sprintf("invalid range %q", ref)})
			}
		case expression.IsAddress(ref):
			a, err := ParseAddress(ref)
			if err != nil || !a.IsValid(s.opts.maxRows, s.opts.maxCols) {
				issues = append(issues, ValidationIssue{SeverityError, c.address, fmt.Sprintf("reference %q is outside the sheet", ref)})
			} else if s.cells[a] == nil {
				issues = append(issues, ValidationIssue{SeverityWarning, c.address, fmt.Sprintf("reference %q is an empty cell", ref)})
			}
		default:
			root, _, _ := strings.Cut(ref, ".")
			if _, ok := s.revAlias[root]; ok {
				continue
			}
			if s.opts.container != nil {
				if _, ok := s.opts.container.Property(ref); ok {
					continue
				}
			}
			issues = append(issues, ValidationIssue{SeverityWarning, c.address, fmt.Sprintf("name %q is not defined", ref)})
		}
	}
	return issues
}

// validateSpans checks that a merged block fits the sheet and hides no
// content.
func (s *PropertySheet) validateSpans(c *Cell) []ValidationIssue {
	if !c.IsUsedFor(UsedSpans) {
		return nil
	}
	end := c.address.Offset(c.rowSpan-1, c.colSpan-1)
	if !end.IsValid(s.opts.maxRows, s.opts.maxCols) {
		return []ValidationIssue{{SeverityError, c.address, fmt.Sprintf("span %dx%d extends beyond the sheet", c.rowSpan, c.colSpan)}}
	}
	var issues []ValidationIssue
	s.Range(NewRange(c.address, end), func(other *Cell) bool {
		if other != c && other.expr != nil {
			issues = append(issues, ValidationIssue{SeverityWarning, c.address, fmt.Sprintf("span covers content in %s", other.address)})
		}
		return true
	})
	return issues
}
