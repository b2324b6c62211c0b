package weather

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of a single tool invocation.
type Kind string

const (
	KindToolDisabled        Kind = "ToolDisabled"
	KindUnknownTool         Kind = "UnknownTool"
	KindInvalidParameter    Kind = "InvalidParameter"
	KindInvalidCoordinate   Kind = "InvalidCoordinate"
	KindInvalidRange        Kind = "InvalidRange"
	KindInvalidDateRange    Kind = "InvalidDateRange"
	KindNoDataForRegion     Kind = "NoDataForRegion"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindUpstreamError       Kind = "UpstreamError"
	KindMalformedResponse   Kind = "MalformedResponse"
)

// Sentinels for errors.Is checks. Any *Error matches the sentinel of its kind.
var (
	ErrToolDisabled        = &Error{Kind: KindToolDisabled}
	ErrUnknownTool         = &Error{Kind: KindUnknownTool}
	ErrInvalidParameter    = &Error{Kind: KindInvalidParameter}
	ErrInvalidCoordinate   = &Error{Kind: KindInvalidCoordinate}
	ErrInvalidRange        = &Error{Kind: KindInvalidRange}
	ErrInvalidDateRange    = &Error{Kind: KindInvalidDateRange}
	ErrNoDataForRegion     = &Error{Kind: KindNoDataForRegion}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrUpstreamError       = &Error{Kind: KindUpstreamError}
	ErrMalformedResponse   = &Error{Kind: KindMalformedResponse}
)

// Error is the error type returned across the gateway. Op names the operation
// (tool or upstream endpoint) that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	switch {
	case e.Op == "" && msg == "":
		return string(e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	case msg == "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// E builds an *Error with a formatted message.
func E(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and op to cause. An existing *Error keeps its kind.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *Error
	if errors.As(cause, &existing) {
		return cause
	}
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// KindOf returns the kind carried by err, or "" when err is not a gateway error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
