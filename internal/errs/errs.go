// Package errs defines the closed set of failure kinds produced by the
// transactions pipeline.
//
// Callers distinguish run-fatal failures (Connectivity) from per-item ones
// (RowParse, StatementFailure) by kind rather than by message matching:
//
//	if errs.Is(err, errs.KindConnectivity) {
//	    os.Exit(1)
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnectivity: no session after the bounded retries. Fatal to the run.
	KindConnectivity
	// KindSourceUnavailable: the record source could not be opened or read.
	// Fatal to the load operation only.
	KindSourceUnavailable
	// KindRowParse: a single record failed field conversion. The row is skipped.
	KindRowParse
	// KindStatementFailure: one SQL statement failed. Recoverable per statement.
	KindStatementFailure
	// KindQueryKeyNotFound: no registry entry for the requested key.
	KindQueryKeyNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindSourceUnavailable:
		return "source_unavailable"
	case KindRowParse:
		return "row_parse"
	case KindStatementFailure:
		return "statement_failure"
	case KindQueryKeyNotFound:
		return "query_key_not_found"
	default:
		return "unknown"
	}
}

// Error is a tagged pipeline error.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "insert_temp_data"
	Key  string // registry key or row id, when relevant
	Err  error  // underlying cause, may be nil
}

// New creates a tagged error.
func New(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Key != "" {
		msg += fmt.Sprintf(" (%s)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first tagged error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Connectivity wraps err as a connectivity failure.
func Connectivity(op string, err error) *Error {
	return New(KindConnectivity, op, "", err)
}

// SourceUnavailable wraps err as a source failure for the named source.
func SourceUnavailable(op, source string, err error) *Error {
	return New(KindSourceUnavailable, op, source, err)
}

// RowParse wraps a field conversion failure for the given row id.
func RowParse(op, rowID string, err error) *Error {
	return New(KindRowParse, op, rowID, err)
}

// Statement wraps a failed statement identified by its registry key.
func Statement(op, key string, err error) *Error {
	return New(KindStatementFailure, op, key, err)
}

// NotFound reports a missing registry key.
func NotFound(op, key string) *Error {
	return New(KindQueryKeyNotFound, op, key, nil)
}
