package domain

import (
	"errors"
	"fmt"
)

// ErrVectorLengthMismatch is returned when a similarity computation is
// attempted on vectors of unequal dimensionality.
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// ErrIndexingInProgress signals that an indexing run is already active.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// UnreachableError wraps a connection failure to a provider endpoint so
// callers can surface an actionable message naming the endpoint.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v (is the server running?)", e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned when no parser is registered for a
// file's extension.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s", e.Ext, e.Path)
}

// ParseError carries the offending file name of a failed parse.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
