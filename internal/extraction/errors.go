package extraction

import (
	"errors"
	"fmt"
)

// Kind classifies adapter failures.
type Kind string

const (
	KindUnavailable   Kind = "unavailable"
	KindTransport     Kind = "transport"
	KindTimeout       Kind = "timeout"
	KindMalformed     Kind = "malformed"
	KindSchema        Kind = "schema"
	KindLowConfidence Kind = "low_confidence"
)

// Error is returned by Adapter.Extract.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Transient reports whether retrying the same input may succeed.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindUnavailable, KindTransport, KindTimeout:
		return true
	}
	return false
}

// CountsAsFailure reports whether the failure should be recorded against the
// circuit breaker. A low-confidence answer means the engine is healthy.
func (e *Error) CountsAsFailure() bool {
	return e.Kind != KindLowConfidence
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}
