package paramsheet

import (
	"fmt"
	"sort"
	"strings"
)

// Container is the document a sheet lives in. The sheet publishes the value
// of every aliased cell as a property named by the alias, and resolves names
// that are neither cells nor aliases through it.
type Container interface {
	Property(name string) (any, bool)
	SetProperty(name string, value any) error
	RemoveProperty(name string)
}

// Document is an in-memory Container. Dotted names address nested maps:
// SetProperty("Box.Length", 10) creates or updates Box["Length"].
type Document struct {
	props map[string]any
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{props: make(map[string]any)}
}

// Property returns the value at a dotted path.
func (d *Document) Property(name string) (any, bool) {
	parts := strings.Split(name, ".")
	var cur any = d.props
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetProperty stores value at a dotted path, creating intermediate maps.
func (d *Document) SetProperty(name string, value any) error {
	if name == "" {
		return fmt.Errorf("empty property name")
	}
	parts := strings.Split(name, ".")
	m := d.props
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		if !ok {
			child := make(map[string]any)
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("property %q: %s is not a group", name, p)
		}
		m = child
	}
	m[parts[len(parts)-1]] = value
	return nil
}

// RemoveProperty deletes the value at a dotted path, if present.
func (d *Document) RemoveProperty(name string) {
	parts := strings.Split(name, ".")
	m := d.props
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			return
		}
		m = child
	}
	delete(m, parts[len(parts)-1])
}

// Names returns the sorted top-level property names.
func (d *Document) Names() []string {
	out := make([]string, 0, len(d.props))
	for k := range d.props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
