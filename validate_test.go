package paramsheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuesFor(issues []ValidationIssue, addr string) []ValidationIssue {
	var out []ValidationIssue
	for _, is := range issues {
		if is.Cell.String() == addr {
			out = append(out, is)
		}
	}
	return out
}

func hasIssue(issues []ValidationIssue, sev Severity, substr string) bool {
	for _, is := range issues {
		if is.Severity == sev && strings.Contains(is.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidate_CleanSheet(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "B1", "=A1 + 1")
	require.NoError(t, s.SetAlias(MustParseAddress("A1"), "One", false))
	setCell(t, s, "C1", "=One * 2")

	assert.Empty(t, s.Validate())
}

func TestValidate_ParseError(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "=1+")

	issues := issuesFor(s.Validate(), "A1")
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.True(t, strings.HasPrefix(issues[0].Message, "parse error: "))
}

func TestValidate_UndefinedName(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "B1", "=Nope * 2")

	issues := issuesFor(s.Validate(), "B1")
	assert.True(t, hasIssue(issues, SeverityError, "unresolved: "))
	assert.True(t, hasIssue(issues, SeverityWarning, `name "Nope" is not defined`))
}

func TestValidate_ContainerNamesAreDefined(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.SetProperty("Box", 3.0))
	s := NewSheet(WithContainer(doc))
	setCell(t, s, "A1", "=Box * 2")

	assert.Empty(t, s.Validate())
}

func TestValidate_EmptyReference(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "=D1 + 1")

	issues := issuesFor(s.Validate(), "A1")
	assert.True(t, hasIssue(issues, SeverityWarning, `reference "D1" is an empty cell`))
}

func TestValidate_Cycle(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "=B1")
	setCell(t, s, "B1", "=A1")

	issues := s.Validate()
	require.Len(t, issues, 2)
	for _, is := range issues {
		assert.Equal(t, SeverityError, is.Severity)
		assert.Equal(t, "cell is part of a dependency cycle", is.Message)
	}
}

func TestValidate_DeletedReference(t *testing.T) {
	s := NewSheet()
	setCell(t, s, "A1", "1")
	setCell(t, s, "A2", "=A1 * 2")
	s.RemoveRows(0, 1)

	issues := issuesFor(s.Validate(), "A1")
	assert.True(t, hasIssue(issues, SeverityError, "points at a deleted cell"))
}

func TestValidate_Spans(t *testing.T) {
	s := NewSheet(WithBounds(5, 5))
	setCell(t, s, "A1", "title").SetSpans(2, 2)
	setCell(t, s, "B2", "hidden")
	setCell(t, s, "E5", "corner").SetSpans(1, 3)

	issues := s.Validate()
	assert.True(t, hasIssue(issuesFor(issues, "A1"), SeverityWarning, "span covers content in B2"))
	assert.True(t, hasIssue(issuesFor(issues, "E5"), SeverityError, "extends beyond the sheet"))
}

func TestValidate_EditModeShape(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "5")
	_, err := c.SetEditMode(EditCombo, true)
	require.NoError(t, err)

	issues := issuesFor(s.Validate(), "A1")
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.True(t, strings.HasPrefix(issues[0].Message, "Combo mode: "))
}

func TestValidationIssue_String(t *testing.T) {
	is := ValidationIssue{Severity: SeverityError, Cell: MustParseAddress("B3"), Message: "broken"}
	assert.Equal(t, "[ERROR] B3: broken", is.String())
	is.Severity = SeverityWarning
	assert.Equal(t, "[WARN] B3: broken", is.String())
}
