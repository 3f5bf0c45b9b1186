// Package errors provides error handling for expertkb.
//
// It re-exports github.com/cockroachdb/errors so every package wraps, inspects
// and annotates errors the same way:
//
//	if err := s.db.Exec(...); err != nil {
//	    return errors.Wrap(err, "insert source")
//	}
//
// Grammar/builder mismatches are reported with AssertionFailedf and are never
// returned to callers as ordinary errors.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing hints and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Inspection
var (
	Is        = crdb.Is
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf   = crdb.AssertionFailedf
	IsAssertionFailure = crdb.IsAssertionFailure
)

// Sentinel errors. Wrap them to add context; test with errors.Is.
var (
	// ErrNotFound indicates a lookup or resolution produced nothing
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the caller supplied malformed input
	ErrInvalidRequest = New("invalid request")

	// ErrNoKnowledgeBase indicates no knowledge base has been loaded yet
	ErrNoKnowledgeBase = New("no knowledge base loaded")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequest reports whether err is or wraps ErrInvalidRequest.
func IsInvalidRequest(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
