package paramsheet

import "sort"

// AliasChange records one alias assignment inside a change batch.
type AliasChange struct {
	Address CellAddress
	Old     string
	New     string
}

// ChangeEvent describes everything modified by one outermost atomic change.
type ChangeEvent struct {
	Sheet   *PropertySheet
	Changed []CellAddress // sorted
	Aliases []AliasChange
}

// ChangeListener is notified once per outermost atomic change that modified
// the sheet. Implement this interface to refresh views, persist the document
// or log edits.
type ChangeListener interface {
	SheetChanged(ev ChangeEvent)
}

// ChangeListenerFunc adapts a function to the ChangeListener interface.
type ChangeListenerFunc func(ev ChangeEvent)

func (f ChangeListenerFunc) SheetChanged(ev ChangeEvent) { f(ev) }

// AtomicChange is a reentrant batching scope. Mutations made while any scope
// is open are collected; closing the outermost scope notifies listeners.
//
//	defer sheet.AtomicChange().Close()
type AtomicChange struct {
	sheet  *PropertySheet
	closed bool
}

// AtomicChange opens a change scope.
func (s *PropertySheet) AtomicChange() *AtomicChange {
	s.changeDepth++
	return &AtomicChange{sheet: s}
}

// Close ends the scope. Closing twice is a no-op.
func (a *AtomicChange) Close() {
	if a.closed {
		return
	}
	a.closed = true
	s := a.sheet
	s.changeDepth--
	if s.changeDepth > 0 {
		return
	}
	s.flushChanges()
}

// recordChange adds addr to the pending batch.
func (s *PropertySheet) recordChange(addr CellAddress) {
	if s.pending == nil {
		s.pending = make(map[CellAddress]struct{})
	}
	s.pending[addr] = struct{}{}
}

func (s *PropertySheet) recordAliasChange(addr CellAddress, old, new string) {
	s.pendingAliases = append(s.pendingAliases, AliasChange{Address: addr, Old: old, New: new})
}

func (s *PropertySheet) flushChanges() {
	if len(s.pending) == 0 && len(s.pendingAliases) == 0 {
		return
	}
	ev := ChangeEvent{Sheet: s, Aliases: s.pendingAliases}
	for addr := range s.pending {
		ev.Changed = append(ev.Changed, addr)
	}
	sort.Slice(ev.Changed, func(i, j int) bool { return ev.Changed[i].Less(ev.Changed[j]) })
	s.pending = nil
	s.pendingAliases = nil

	s.log.Debug("sheet changed", "cells", len(ev.Changed), "aliases", len(ev.Aliases))
	for _, l := range s.opts.listeners {
		l.SheetChanged(ev)
	}
}
