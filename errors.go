package paramsheet

import (
	"errors"
	"fmt"
)

var (
	ErrAliasLocked      = errors.New("alias locked")
	ErrAliasInUse       = errors.New("alias already in use")
	ErrInvalidAlias     = errors.New("invalid alias")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrInvalidUnit      = errors.New("invalid unit")
	ErrNoContainer      = errors.New("no container")
	ErrUnknownEditMode  = errors.New("unknown edit mode")
	ErrInvalidAlignment = errors.New("invalid alignment")
	ErrInvalidColor     = errors.New("invalid color")
	ErrCycle            = errors.New("cyclic dependency")
	ErrOutOfBounds      = errors.New("address out of bounds")
	ErrNotFound         = errors.New("not found")
)

// CellError is an error raised by an operation on a specific cell.
type CellError struct {
	Address CellAddress
	Err     error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %s: %v", e.Address, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

func cellErrorf(addr CellAddress, format string, args ...any) error {
	return &CellError{Address: addr, Err: fmt.Errorf(format, args...)}
}
