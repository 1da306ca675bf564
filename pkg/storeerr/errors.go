// Package storeerr implements the error taxonomy for the storage core
// (spec.md §7): every recoverable condition is reported as a value carrying a
// Kind plus enough context (table, column, row, page, offset) to act on it,
// never a panic or a bare string.
package storeerr

import (
	"errors"
	"fmt"
)

// Kind classifies a storage error.
type Kind string

const (
	IO                  Kind = "io"
	Corrupted           Kind = "corrupted"
	UnsupportedVersion  Kind = "unsupported_version"
	Schema              Kind = "schema"
	Type                Kind = "type"
	Constraint          Kind = "constraint"
	Import              Kind = "import"
	ParallelUnsupported Kind = "parallel_unsupported"
	OutOfFrames         Kind = "out_of_frames"
	MetadataTooLarge    Kind = "metadata_too_large"
	Internal            Kind = "internal"
)

// Error is the concrete error type returned by every layer of the storage
// core. Context fields are populated as available; zero values mean "not
// applicable" (Row == -1, PageID == -1).
type Error struct {
	Kind    Kind
	Message string

	Table  string
	Column string
	Row    int
	PageID int64
	Offset int64

	Err error // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Table != "" {
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" (column=%s)", e.Column)
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" (row=%d)", e.Row)
	}
	if e.PageID >= 0 {
		msg += fmt.Sprintf(" (page=%d)", e.PageID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, storeerr.New(storeerr.Corrupted, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New builds a bare Error of the given kind, with Row/PageID defaulted to -1
// (meaning "not applicable").
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Row: -1, PageID: -1}
}

// Wrap builds an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Row: -1, PageID: -1, Err: err}
}

// WithTable returns a copy of e with Table set.
func (e *Error) WithTable(table string) *Error {
	c := *e
	c.Table = table
	return &c
}

// WithColumn returns a copy of e with Column set.
func (e *Error) WithColumn(column string) *Error {
	c := *e
	c.Column = column
	return &c
}

// WithRow returns a copy of e with Row set.
func (e *Error) WithRow(row int) *Error {
	c := *e
	c.Row = row
	return &c
}

// WithPage returns a copy of e with PageID set.
func (e *Error) WithPage(pageID int64) *Error {
	c := *e
	c.PageID = pageID
	return &c
}

// WithOffset returns a copy of e with Offset set.
func (e *Error) WithOffset(offset int64) *Error {
	c := *e
	c.Offset = offset
	return &c
}

// KindOf reports the Kind of err if it is (or wraps) a *Error, and ok=true.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
