package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// FetchError reports a failed request against a single source: a timeout,
// a non-2xx status, a wrong content type or an undecodable body.
type FetchError struct {
	Source string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Source, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.Source, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a malformed feed entry or response document.
type ParseError struct {
	Source string
	// Entry is the 1-based position of the bad entry; 0 means the whole
	// document.
	Entry int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Entry > 0 {
		return fmt.Sprintf("parse %s entry %d: %v", e.Source, e.Entry, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreError wraps a failed storage operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
