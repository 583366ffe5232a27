package paramsheet

import (
	"sort"
	"strings"

	"github.com/javajack/paramsheet/expression"
)

// dependencyGraph tracks which cells read which names. A name is a cell
// address ("B3"), an alias or a container property; range references are
// kept separately and matched by containment.
type dependencyGraph struct {
	precedents map[CellAddress][]string            // cell → names it reads
	named      map[string]map[CellAddress]struct{} // name → cells reading it
	ranges     map[Range]map[CellAddress]struct{}  // range → cells reading it
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		precedents: make(map[CellAddress][]string),
		named:      make(map[string]map[CellAddress]struct{}),
		ranges:     make(map[Range]map[CellAddress]struct{}),
	}
}

// add registers the references of addr. Duplicates are ignored.
func (g *dependencyGraph) add(addr CellAddress, refs []string) {
	if len(refs) == 0 {
		return
	}
	seen := make(map[string]bool, len(g.precedents[addr]))
	for _, r := range g.precedents[addr] {
		seen[r] = true
	}
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		g.precedents[addr] = append(g.precedents[addr], ref)
		if r, ok := rangeRef(ref); ok {
			if g.ranges[r] == nil {
				g.ranges[r] = make(map[CellAddress]struct{})
			}
			g.ranges[r][addr] = struct{}{}
			continue
		}
		name := canonicalName(ref)
		if g.named[name] == nil {
			g.named[name] = make(map[CellAddress]struct{})
		}
		g.named[name][addr] = struct{}{}
	}
}

// clear removes every edge from addr and returns the references it had.
func (g *dependencyGraph) clear(addr CellAddress) []string {
	refs := g.precedents[addr]
	for _, ref := range refs {
		if r, ok := rangeRef(ref); ok {
			delete(g.ranges[r], addr)
			if len(g.ranges[r]) == 0 {
				delete(g.ranges, r)
			}
			continue
		}
		name := canonicalName(ref)
		delete(g.named[name], addr)
		if len(g.named[name]) == 0 {
			delete(g.named, name)
		}
	}
	delete(g.precedents, addr)
	return refs
}

// references returns the names addr reads.
func (g *dependencyGraph) references(addr CellAddress) []string {
	return g.precedents[addr]
}

// readers returns the cells that directly read addr, either by address,
// through one of names (its alias) or through a range.
func (g *dependencyGraph) readers(addr CellAddress, names ...string) []CellAddress {
	set := make(map[CellAddress]struct{})
	for reader := range g.named[addr.String()] {
		set[reader] = struct{}{}
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		for reader := range g.named[n] {
			set[reader] = struct{}{}
		}
	}
	for r, readers := range g.ranges {
		if r.Contains(addr) {
			for reader := range readers {
				set[reader] = struct{}{}
			}
		}
	}
	return sortedAddresses(set)
}

// readersOfName returns the cells that read a non-address name.
func (g *dependencyGraph) readersOfName(name string) []CellAddress {
	set := make(map[CellAddress]struct{}, len(g.named[name]))
	for reader := range g.named[name] {
		set[reader] = struct{}{}
	}
	return sortedAddresses(set)
}

// calculationOrder returns cells so that each follows the cells it reads.
// precedentsOf maps a cell to the cells it reads. Cells on a cycle are
// returned separately.
func (g *dependencyGraph) calculationOrder(cells []CellAddress, precedentsOf func(CellAddress) []CellAddress) (order, cyclic []CellAddress) {
	// unvisited: not in map, visiting: false, visited: true
	state := make(map[CellAddress]bool)
	onCycle := make(map[CellAddress]struct{})
	var stack []CellAddress

	var visit func(addr CellAddress)
	visit = func(addr CellAddress) {
		if done, seen := state[addr]; seen {
			if !done {
				for i := len(stack) - 1; i >= 0; i-- {
					onCycle[stack[i]] = struct{}{}
					if stack[i] == addr {
						break
					}
				}
			}
			return
		}
		state[addr] = false
		stack = append(stack, addr)
		for _, p := range precedentsOf(addr) {
			visit(p)
		}
		stack = stack[:len(stack)-1]
		state[addr] = true
		order = append(order, addr)
	}

	for _, addr := range cells {
		visit(addr)
	}
	return order, sortedAddresses(onCycle)
}

// canonicalName strips absolute markers so "$A$1" and "A1" share edges.
func canonicalName(ref string) string {
	if expression.IsAddress(ref) {
		if a, err := ParseAddress(ref); err == nil {
			return a.String()
		}
	}
	return ref
}

// rangeRef parses a "A1:B3" reference.
func rangeRef(ref string) (Range, bool) {
	if !strings.Contains(ref, ":") {
		return Range{}, false
	}
	r, err := ParseRange(ref)
	return r, err == nil
}

func sortedAddresses(set map[CellAddress]struct{}) []CellAddress {
	out := make([]CellAddress, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
