package paramsheet

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/javajack/paramsheet/expression"
)

// PropertySheet owns cells by address, the alias maps and the dependency
// graph between cells. It is not safe for concurrent use.
type PropertySheet struct {
	id        uuid.UUID
	opts      *Options
	log       *slog.Logger
	evaluator *expression.Evaluator

	cells    map[CellAddress]*Cell
	aliases  map[CellAddress]string
	revAlias map[string]CellAddress
	graph    *dependencyGraph
	dirty    map[CellAddress]struct{}

	evaluating map[CellAddress]bool
	restoring  bool

	changeDepth    int
	pending        map[CellAddress]struct{}
	pendingAliases []AliasChange
}

// NewSheet creates an empty sheet.
func NewSheet(opts ...Option) *PropertySheet {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	ev := o.evaluator
	if ev == nil {
		ev = expression.NewEvaluator()
	}
	if o.clipboard == nil {
		o.clipboard = &MemoryClipboard{}
	}
	s := &PropertySheet{
		id:         uuid.New(),
		opts:       o,
		evaluator:  ev,
		cells:      make(map[CellAddress]*Cell),
		aliases:    make(map[CellAddress]string),
		revAlias:   make(map[string]CellAddress),
		graph:      newDependencyGraph(),
		dirty:      make(map[CellAddress]struct{}),
		evaluating: make(map[CellAddress]bool),
	}
	s.log = o.logger.With("sheet", s.id.String())
	return s
}

// ID returns the sheet's unique identifier.
func (s *PropertySheet) ID() uuid.UUID { return s.id }

// Container returns the document the sheet publishes aliases to, or nil.
func (s *PropertySheet) Container() Container { return s.opts.container }

// Decimals returns the number of decimals used in display strings.
func (s *PropertySheet) Decimals() int { return s.opts.decimals }

// IsRestoring reports whether a Restore is in progress.
func (s *PropertySheet) IsRestoring() bool { return s.restoring }

// Cell returns the cell at addr, or nil.
func (s *PropertySheet) Cell(addr CellAddress) *Cell { return s.cells[addr] }

// CellAt returns the cell at the 0-based row and column, or nil.
func (s *PropertySheet) CellAt(row, col int) *Cell { return s.cells[NewAddress(row, col)] }

// CreateCell returns the cell at addr, creating it if needed. A new cell
// next to an auto-alias cell picks up its alias.
func (s *PropertySheet) CreateCell(addr CellAddress) (*Cell, error) {
	if c := s.cells[addr]; c != nil {
		return c, nil
	}
	if !addr.IsValid(s.opts.maxRows, s.opts.maxCols) {
		return nil, &CellError{Address: addr, Err: ErrOutOfBounds}
	}
	defer s.AtomicChange().Close()
	c := newCell(addr, s)
	s.cells[addr] = c
	if !s.restoring {
		c.checkAutoAlias()
	}
	return c, nil
}

// RemoveCell deletes the cell at addr. Cells reading it see an unresolved
// reference on the next evaluation.
func (s *PropertySheet) RemoveCell(addr CellAddress) {
	c := s.cells[addr]
	if c == nil {
		return
	}
	defer s.AtomicChange().Close()
	c.setAliasUnchecked("")
	s.graph.clear(addr)
	s.setDirty(addr)
	delete(s.cells, addr)
	delete(s.dirty, addr)
}

// prune removes a cell that no longer holds anything.
func (s *PropertySheet) prune(c *Cell) {
	if !c.IsUsed() && c.editMode == EditNormal && !c.HasException() {
		s.RemoveCell(c.address)
	}
}

// UsedCells returns the addresses of all cells in row-major order.
func (s *PropertySheet) UsedCells() []CellAddress {
	set := make(map[CellAddress]struct{}, len(s.cells))
	for a := range s.cells {
		set[a] = struct{}{}
	}
	return sortedAddresses(set)
}

// Range calls fn for every existing cell inside r in row-major order until
// fn returns false.
func (s *PropertySheet) Range(r Range, fn func(*Cell) bool) {
	for _, a := range s.UsedCells() {
		if !r.Contains(a) {
			continue
		}
		if !fn(s.cells[a]) {
			return
		}
	}
}

// UsedRange returns the smallest range covering every cell.
func (s *PropertySheet) UsedRange() (Range, bool) {
	cells := s.UsedCells()
	if len(cells) == 0 {
		return Range{}, false
	}
	r := Range{From: cells[0], To: cells[0]}
	for _, a := range cells[1:] {
		r = NewRange(NewAddress(min(r.From.Row, a.Row), min(r.From.Col, a.Col)),
			NewAddress(max(r.To.Row, a.Row), max(r.To.Col, a.Col)))
	}
	return r, true
}

// SetContent sets the content of the cell at addr, creating it when
// needed. Emptying a cell with default formatting removes it.
func (s *PropertySheet) SetContent(addr CellAddress, text string) error {
	if text == "" && s.cells[addr] == nil {
		return nil
	}
	c, err := s.CreateCell(addr)
	if err != nil {
		return err
	}
	defer s.AtomicChange().Close()
	c.SetContent(text, false)
	s.prune(c)
	return nil
}

// SetAlias sets the alias of the cell at addr. An empty alias clears it.
func (s *PropertySheet) SetAlias(addr CellAddress, alias string, silent bool) error {
	if alias == "" && s.cells[addr] == nil {
		return nil
	}
	c, err := s.CreateCell(addr)
	if err != nil {
		return err
	}
	defer s.AtomicChange().Close()
	if err := c.SetAlias(alias, silent); err != nil {
		return err
	}
	s.prune(c)
	return nil
}

// CellByAlias returns the cell carrying alias, or nil.
func (s *PropertySheet) CellByAlias(alias string) *Cell {
	if a, ok := s.revAlias[alias]; ok {
		return s.cells[a]
	}
	return nil
}

// AddressOf resolves an alias or an address string.
func (s *PropertySheet) AddressOf(name string) (CellAddress, bool) {
	if a, ok := s.revAlias[name]; ok {
		return a, true
	}
	if expression.IsAddress(strings.ToUpper(name)) {
		if a, err := ParseAddress(name); err == nil {
			return a, true
		}
	}
	return CellAddress{}, false
}

// AliasOf returns the alias of the cell at addr, or "".
func (s *PropertySheet) AliasOf(addr CellAddress) string { return s.aliases[addr] }

// Aliases returns a copy of the alias → address map.
func (s *PropertySheet) Aliases() map[string]CellAddress {
	out := make(map[string]CellAddress, len(s.revAlias))
	for k, v := range s.revAlias {
		out[k] = v
	}
	return out
}

// setDirty invalidates addr and everything that reads it. All of them are
// reported as changed.
func (s *PropertySheet) setDirty(addr CellAddress) {
	s.invalidate(addr, make(map[CellAddress]bool))
}

func (s *PropertySheet) invalidate(addr CellAddress, seen map[CellAddress]bool) {
	if seen[addr] {
		return
	}
	seen[addr] = true
	s.dirty[addr] = struct{}{}
	s.recordChange(addr)
	if c := s.cells[addr]; c != nil {
		c.computed = false
		c.value, c.valueErr = nil, nil
	}
	for _, reader := range s.graph.readers(addr, s.aliases[addr]) {
		s.invalidate(reader, seen)
	}
}

// invalidateName invalidates the cells that read a non-address name.
func (s *PropertySheet) invalidateName(name string) {
	if name == "" {
		return
	}
	seen := make(map[CellAddress]bool)
	for _, reader := range s.graph.readersOfName(name) {
		s.invalidate(reader, seen)
	}
}

// IsDirty reports whether the cell at addr awaits recompute.
func (s *PropertySheet) IsDirty(addr CellAddress) bool {
	_, ok := s.dirty[addr]
	return ok
}

// Dependents returns the cells that directly or indirectly read addr.
func (s *PropertySheet) Dependents(addr CellAddress) []CellAddress {
	seen := make(map[CellAddress]struct{})
	var walk func(a CellAddress)
	walk = func(a CellAddress) {
		for _, r := range s.graph.readers(a, s.aliases[a]) {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			walk(r)
		}
	}
	walk(addr)
	return sortedAddresses(seen)
}

// Precedents returns the existing cells that addr reads directly.
func (s *PropertySheet) Precedents(addr CellAddress) []CellAddress {
	set := make(map[CellAddress]struct{})
	for _, ref := range s.graph.references(addr) {
		if r, ok := rangeRef(ref); ok {
			for a := range s.cells {
				if r.Contains(a) {
					set[a] = struct{}{}
				}
			}
			continue
		}
		if a, ok := s.refAddress(ref); ok && s.cells[a] != nil {
			set[a] = struct{}{}
		}
	}
	return sortedAddresses(set)
}

// refAddress maps an address or alias reference to the cell it reads.
func (s *PropertySheet) refAddress(ref string) (CellAddress, bool) {
	if expression.IsAddress(ref) {
		a, err := ParseAddress(ref)
		return a, err == nil
	}
	a, ok := s.revAlias[ref]
	return a, ok
}

// resolverFor returns the name resolver used when evaluating the cell at
// self. Reading self is reported as a cycle.
func (s *PropertySheet) resolverFor(self CellAddress) expression.Resolver {
	return expression.ResolverFunc(func(name string) (any, error) {
		return s.resolve(self, name)
	})
}

func (s *PropertySheet) resolve(self CellAddress, name string) (any, error) {
	if r, ok := rangeRef(name); ok {
		var out []any
		for _, a := range r.Addresses() {
			if a == self {
				return nil, &CellError{Address: self, Err: ErrCycle}
			}
			c := s.cells[a]
			if c == nil || c.expr == nil {
				continue
			}
			v, err := s.cellValue(a)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	if expression.IsAddress(name) {
		a, err := ParseAddress(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", expression.ErrUnresolved, name)
		}
		if a == self {
			return nil, &CellError{Address: self, Err: ErrCycle}
		}
		return s.cellValue(a)
	}
	if a, ok := s.revAlias[name]; ok {
		if a == self {
			return nil, &CellError{Address: self, Err: ErrCycle}
		}
		return s.cellValue(a)
	}
	if s.opts.container != nil {
		if v, ok := s.opts.container.Property(name); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", expression.ErrUnresolved, name)
}

// Value returns the evaluated value of the cell at addr, computing it and
// its precedents when needed.
func (s *PropertySheet) Value(addr CellAddress) (any, error) {
	return s.cellValue(addr)
}

func (s *PropertySheet) cellValue(addr CellAddress) (any, error) {
	c := s.cells[addr]
	if c == nil || c.expr == nil {
		return nil, fmt.Errorf("%w: cell %s is empty", expression.ErrUnresolved, addr)
	}
	if c.computed {
		return c.value, c.valueErr
	}
	if s.evaluating[addr] {
		return nil, &CellError{Address: addr, Err: ErrCycle}
	}
	s.compute(c)
	return c.value, c.valueErr
}

// compute evaluates c and records the outcome on the cell. It never marks
// anything dirty.
func (s *PropertySheet) compute(c *Cell) {
	if c.HasParseException() {
		c.value, c.computed = nil, true
		c.valueErr = fmt.Errorf("%w: cell %s: %s", expression.ErrUnresolved, c.address, c.exception)
		return
	}
	s.evaluating[c.address] = true
	v, err := s.evaluator.Value(c.expr, s.resolverFor(c.address))
	delete(s.evaluating, c.address)
	c.value, c.valueErr, c.computed = v, err, true

	switch {
	case err != nil:
		if !c.HasException() || c.evalException {
			kind := usedException
			if errors.Is(err, expression.ErrUnresolved) || errors.Is(err, ErrCycle) || errors.Is(err, ErrNotFound) {
				kind = usedResolveException
			}
			c.setUsed(usedException|usedResolveException, false)
			c.setUsed(kind, true)
			c.exception = err.Error()
			c.evalException = true
			s.log.Debug("cell evaluation failed", "cell", c.address, "error", err)
		}
		return
	case c.evalException:
		c.setUsed(usedException|usedResolveException, false)
		c.exception = ""
		c.evalException = false
	}

	if q, ok := v.(expression.Quantity); ok {
		c.computedUnit = q.Unit
		c.setUsed(UsedComputedUnit, !q.Unit.IsEmpty())
	} else if c.used&UsedComputedUnit != 0 {
		c.computedUnit = expression.Dimensionless
		c.setUsed(UsedComputedUnit, false)
	}

	if c.alias != "" && s.opts.container != nil {
		if err := s.opts.container.SetProperty(c.alias, v); err != nil {
			s.log.Warn("cannot publish alias", "alias", c.alias, "cell", c.address, "error", err)
		}
	}
}

// Recompute evaluates every dirty cell after the cells it reads. Failures
// are recorded as cell exceptions; cells on a dependency cycle get a
// resolve exception.
func (s *PropertySheet) Recompute() {
	defer s.AtomicChange().Close()

	var todo []CellAddress
	for _, a := range s.UsedCells() {
		c := s.cells[a]
		if _, dirty := s.dirty[a]; dirty || (c.expr != nil && !c.computed) {
			todo = append(todo, a)
		}
	}
	order, cyclic := s.graph.calculationOrder(todo, s.Precedents)
	for _, a := range cyclic {
		s.log.Warn("dependency cycle", "cell", a)
	}
	recomputed := 0
	for _, a := range order {
		c := s.cells[a]
		if c == nil || c.expr == nil || c.computed {
			continue
		}
		_, _ = s.cellValue(a)
		s.recordChange(a)
		recomputed++
	}
	s.dirty = make(map[CellAddress]struct{})
	s.log.Debug("recompute", "cells", recomputed, "cycles", len(cyclic))
}

// assign writes value to a binding target: a cell address or alias, or a
// dotted container property path.
func (s *PropertySheet) assign(path string, value any) error {
	root, rest, member := strings.Cut(path, ".")
	addr, isCell := s.AddressOf(root)
	if isCell {
		if member {
			return fmt.Errorf("assign %s: %w: member %q of a cell", path, ErrTypeMismatch, rest)
		}
		c, err := s.CreateCell(addr)
		if err != nil {
			return err
		}
		e, err := expression.FromValue(value)
		if err != nil {
			return &CellError{Address: addr, Err: err}
		}
		return c.SetExpression(e, PasteFormula)
	}
	if s.opts.container == nil {
		return fmt.Errorf("assign %s: %w", path, ErrNoContainer)
	}
	if err := s.opts.container.SetProperty(path, value); err != nil {
		return fmt.Errorf("assign %s: %w", path, err)
	}
	defer s.AtomicChange().Close()
	s.invalidateName(root)
	return nil
}

const deletedRefPrefix = "_REF_"

// remap moves every cell to mapAddr(address) and rewrites references in
// all expressions. Cells for which mapAddr returns false are deleted;
// references to them become unresolvable.
func (s *PropertySheet) remap(mapAddr func(CellAddress) (CellAddress, bool)) {
	defer s.AtomicChange().Close()

	rename := func(tok string) (string, bool) {
		a, err := ParseAddress(tok)
		if err != nil {
			return "", false
		}
		to, ok := mapAddr(a)
		if !ok {
			return deletedRefPrefix + strings.ReplaceAll(tok, "$", ""), true
		}
		if to == a {
			return "", false
		}
		return formatRef(to, tok), true
	}

	old := s.cells
	keys := s.UsedCells()
	s.cells = make(map[CellAddress]*Cell, len(old))
	s.aliases = make(map[CellAddress]string)
	s.revAlias = make(map[string]CellAddress)
	s.graph = newDependencyGraph()
	s.dirty = make(map[CellAddress]struct{})

	for _, addr := range keys {
		c := old[addr]
		s.recordChange(addr)
		to, ok := mapAddr(addr)
		if !ok {
			if c.alias != "" {
				if s.opts.container != nil {
					s.opts.container.RemoveProperty(c.alias)
				}
				s.recordAliasChange(addr, c.alias, "")
			}
			continue
		}
		c.address = to
		s.cells[to] = c
		if c.alias != "" {
			s.aliases[to] = c.alias
			s.revAlias[c.alias] = to
			if to != addr {
				s.recordAliasChange(to, c.alias, c.alias)
			}
		}
		s.recordChange(to)
	}
	for addr, c := range s.cells {
		if c.expr != nil && !c.HasParseException() {
			c.expr = expression.RenameReferences(c.expr, rename)
			s.graph.add(addr, expression.References(c.expr))
		}
		c.computed = false
		c.value, c.valueErr = nil, nil
		s.dirty[addr] = struct{}{}
	}
}

// formatRef renders addr keeping the absolute markers of the original token.
func formatRef(addr CellAddress, tok string) string {
	col, row := ColToName(addr.Col), fmt.Sprint(addr.Row+1)
	if strings.HasPrefix(tok, "$") {
		col = "$" + col
	}
	if strings.Contains(strings.TrimPrefix(tok, "$"), "$") {
		row = "$" + row
	}
	return col + row
}

// InsertRows inserts count empty rows before row.
func (s *PropertySheet) InsertRows(row, count int) {
	if count <= 0 {
		return
	}
	s.remap(func(a CellAddress) (CellAddress, bool) {
		if a.Row < row {
			return a, true
		}
		to := a.Offset(count, 0)
		return to, to.IsValid(s.opts.maxRows, s.opts.maxCols)
	})
}

// RemoveRows deletes count rows starting at row.
func (s *PropertySheet) RemoveRows(row, count int) {
	if count <= 0 {
		return
	}
	s.remap(func(a CellAddress) (CellAddress, bool) {
		switch {
		case a.Row < row:
			return a, true
		case a.Row < row+count:
			return a, false
		}
		return a.Offset(-count, 0), true
	})
}

// InsertColumns inserts count empty columns before col.
func (s *PropertySheet) InsertColumns(col, count int) {
	if count <= 0 {
		return
	}
	s.remap(func(a CellAddress) (CellAddress, bool) {
		if a.Col < col {
			return a, true
		}
		to := a.Offset(0, count)
		return to, to.IsValid(s.opts.maxRows, s.opts.maxCols)
	})
}

// RemoveColumns deletes count columns starting at col.
func (s *PropertySheet) RemoveColumns(col, count int) {
	if count <= 0 {
		return
	}
	s.remap(func(a CellAddress) (CellAddress, bool) {
		switch {
		case a.Col < col:
			return a, true
		case a.Col < col+count:
			return a, false
		}
		return a.Offset(0, -count), true
	})
}

// MoveCell moves the cell at from to to, replacing any cell there.
// References to from are rewritten; the moved cell's own references are
// kept as they are.
func (s *PropertySheet) MoveCell(from, to CellAddress) error {
	c := s.cells[from]
	if c == nil {
		return &CellError{Address: from, Err: ErrNotFound}
	}
	if from == to {
		return nil
	}
	if !to.IsValid(s.opts.maxRows, s.opts.maxCols) {
		return &CellError{Address: to, Err: ErrOutOfBounds}
	}
	defer s.AtomicChange().Close()
	s.RemoveCell(to)

	refs := s.graph.clear(from)
	readers := s.graph.readers(from)
	delete(s.cells, from)
	s.setDirty(from)
	if c.alias != "" {
		delete(s.aliases, from)
		s.aliases[to] = c.alias
		s.revAlias[c.alias] = to
		s.recordAliasChange(to, c.alias, c.alias)
	}
	c.address = to
	s.cells[to] = c
	s.graph.add(to, refs)

	rename := func(tok string) (string, bool) {
		if a, err := ParseAddress(tok); err == nil && a == from {
			return formatRef(to, tok), true
		}
		return "", false
	}
	for _, r := range readers {
		if r == from {
			r = to
		}
		rc := s.cells[r]
		if rc == nil || rc.expr == nil {
			continue
		}
		rc.storeExpression(expression.RenameReferences(rc.expr, rename))
	}
	s.setDirty(to)
	return nil
}

// CopyCell replaces the cell at to with a copy of the cell at from.
// References are copied as written; Copy and Paste shift them instead.
// The alias stays with from.
func (s *PropertySheet) CopyCell(from, to CellAddress) error {
	src := s.cells[from]
	if src == nil {
		return &CellError{Address: from, Err: ErrNotFound}
	}
	if from == to {
		return nil
	}
	if !to.IsValid(s.opts.maxRows, s.opts.maxCols) {
		return &CellError{Address: to, Err: ErrOutOfBounds}
	}
	defer s.AtomicChange().Close()
	s.RemoveCell(to)
	c, err := s.CreateCell(to)
	if err != nil {
		return err
	}
	c.copyFrom(src)
	s.prune(c)
	return nil
}

// sortedCells returns the cells of the sheet in row-major order.
func (s *PropertySheet) sortedCells() []*Cell {
	out := make([]*Cell, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].address.Less(out[j].address) })
	return out
}
