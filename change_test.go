package paramsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []ChangeEvent
}

func (r *recorder) SheetChanged(ev ChangeEvent) { r.events = append(r.events, ev) }

func TestAtomicChange_NotifiesOnce(t *testing.T) {
	rec := &recorder{}
	s := NewSheet(WithChangeListener(rec))

	func() {
		defer s.AtomicChange().Close()
		setCell(t, s, "A1", "1")
		setCell(t, s, "A2", "=A1 + 1")
		require.NoError(t, s.SetAlias(MustParseAddress("A1"), "Start", false))
		assert.Empty(t, rec.events, "no notification inside the batch")
	}()

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Same(t, s, ev.Sheet)
	assert.Contains(t, ev.Changed, MustParseAddress("A1"))
	assert.Contains(t, ev.Changed, MustParseAddress("A2"))
	assert.Equal(t, []AliasChange{{Address: MustParseAddress("A1"), Old: "", New: "Start"}}, ev.Aliases)
}

func TestAtomicChange_UnbatchedEdits(t *testing.T) {
	rec := &recorder{}
	s := NewSheet(WithChangeListener(rec))
	setCell(t, s, "A1", "1")
	setCell(t, s, "B1", "2")

	require.Len(t, rec.events, 2)
	assert.Equal(t, []CellAddress{MustParseAddress("A1")}, rec.events[0].Changed)
	assert.Equal(t, []CellAddress{MustParseAddress("B1")}, rec.events[1].Changed)
}

func TestAtomicChange_Nested(t *testing.T) {
	var count int
	s := NewSheet(WithChangeListener(ChangeListenerFunc(func(ChangeEvent) { count++ })))

	outer := s.AtomicChange()
	inner := s.AtomicChange()
	setCell(t, s, "A1", "1")
	inner.Close()
	inner.Close()
	assert.Equal(t, 0, count)
	outer.Close()
	assert.Equal(t, 1, count)
}

func TestAtomicChange_NothingChanged(t *testing.T) {
	var count int
	s := NewSheet(WithChangeListener(ChangeListenerFunc(func(ChangeEvent) { count++ })))
	s.AtomicChange().Close()
	assert.Equal(t, 0, count)
}

func TestAtomicChange_DependentsReported(t *testing.T) {
	rec := &recorder{}
	s := NewSheet(WithChangeListener(rec))
	setCell(t, s, "A1", "1")
	setCell(t, s, "B1", "=A1 * 2")
	rec.events = nil

	setCell(t, s, "A1", "5")
	require.Len(t, rec.events, 1)
	assert.Equal(t, []CellAddress{MustParseAddress("A1"), MustParseAddress("B1")}, rec.events[0].Changed)
}

func TestAtomicChange_ExceptionEdits(t *testing.T) {
	rec := &recorder{}
	s := NewSheet(WithChangeListener(rec))
	c := setCell(t, s, "A1", "1")
	rec.events = nil

	c.SetException("broken")
	require.Len(t, rec.events, 1)
	assert.Equal(t, []CellAddress{MustParseAddress("A1")}, rec.events[0].Changed)

	c.ClearException()
	require.Len(t, rec.events, 2)

	c.SetResolveException("missing")
	c.ClearResolveException()
	assert.Len(t, rec.events, 4)
	assert.False(t, c.HasException())

	// a later batch starts empty
	func() {
		defer s.AtomicChange().Close()
		c.SetParseException("bad")
		assert.Len(t, rec.events, 4)
	}()
	assert.Len(t, rec.events, 5)
}
