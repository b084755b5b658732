package fplerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that map failures onto transport
// responses or retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUpstreamUnavailable
	KindInvalidInput
	KindExpectedPoints
	KindSolverUnavailable
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindInvalidInput:
		return "invalid_input"
	case KindExpectedPoints:
		return "expected_points_failure"
	case KindSolverUnavailable:
		return "solver_unavailable"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error carries a machine-readable kind, a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind, so sentinel comparisons like
// errors.Is(err, fplerr.NotFound("")) work on kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func UpstreamUnavailable(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func ExpectedPoints(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindExpectedPoints, Message: fmt.Sprintf(format, args...), Err: err}
}

func SolverUnavailable(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindSolverUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

func Cancelled(err error) *Error {
	return &Error{Kind: KindCancelled, Message: "operation cancelled", Err: err}
}

// KindOf extracts the kind from any error in the chain; KindUnknown when the
// chain carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
