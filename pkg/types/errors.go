package types

import (
	"errors"
	"fmt"
)

// Repository and lifecycle errors.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidData      = errors.New("invalid entity data")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidState     = errors.New("invalid state value")
	ErrDetached         = errors.New("repository is detached")
	ErrAlreadyAttached  = errors.New("repository is already attached")
	ErrInvalidPlacement = errors.New("invalid placement")
)

// Scan format errors.
var (
	ErrFormat = errors.New("identifier must be 8 digits")
)

// Replacement protocol errors. The session stays in its current step when
// one of these is returned.
var (
	ErrWrongModule       = errors.New("scanned module is not the one in the slot")
	ErrNotRegistered     = errors.New("module is not registered")
	ErrAlreadyAssigned   = errors.New("module is already assigned to a kit")
	ErrNotAvailable      = errors.New("module is not available for matchmaking")
	ErrNoSession         = errors.New("no replacement session is open")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrSlotNotFound      = errors.New("slot not found in kit layout")
	ErrNothingToReplace  = errors.New("module in slot does not need replacement")
	ErrNotNext           = errors.New("another empty slot must be filled first")
)

// Family compatibility errors.
var (
	ErrSelfReplacement = errors.New("module cannot replace itself")
	ErrContentMismatch = errors.New("content code does not match slot")
	ErrColorMismatch   = errors.New("color code does not match slot")
)

// Layout authoring errors.
var (
	ErrOutOfBounds  = errors.New("slot extends outside the grid")
	ErrOverlap      = errors.New("slot overlaps an existing slot")
	ErrContentInUse = errors.New("content is already assigned to another slot")
)

// Integrity errors.
var (
	ErrTemplateMissing = errors.New("master layout is missing or empty")
)

// TransportError reports a failed repository call. The engine treats it as
// reportable but never fatal.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for op. A nil err stays nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err came from the repository boundary.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
