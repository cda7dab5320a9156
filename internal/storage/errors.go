package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptData is matched by every *CorruptDataError.
	ErrCorruptData = errors.New("corrupt data")
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUserNotFound is returned by user lookups that match nothing.
	ErrUserNotFound = errors.New("user not found")
)

// CorruptDataError describes a table row that could not be decoded.
// Line is 1-based and counts the header.
type CorruptDataError struct {
	Table  string
	Line   int
	Column string
	Err    error
}

func (e *CorruptDataError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: line %d: %v", e.Table, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: line %d: column %q: %v", e.Table, e.Line, e.Column, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// Is reports ErrCorruptData as a match so callers need not know the type.
func (e *CorruptDataError) Is(target error) bool { return target == ErrCorruptData }
