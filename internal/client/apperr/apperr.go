/*
Package apperr is the client's failure vocabulary.

Every failure that reaches a user-visible surface is normalised into one
*Error carrying a Kind and a human-readable Message. The message is taken,
in order, from the boundary's structured "detail" field, its "message"
field, the transport-level error text, and finally a caller-supplied
fallback.
*/
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// BoundaryFailure is any non-2xx answer or network error not covered below.
	BoundaryFailure Kind = iota
	// AuthenticationFailure is a rejected credential exchange (bad password,
	// wrong PIN). Terminal; never retried.
	AuthenticationFailure
	// SessionExpired is a 401 on an authenticated call that survived the
	// refresh-and-retry cycle.
	SessionExpired
	// ValidationFailure is malformed local input; the boundary was not called.
	ValidationFailure
	// CapabilityFailure is a missing or denied device (camera).
	CapabilityFailure
)

func (k Kind) String() string {
	switch k {
	case AuthenticationFailure:
		return "authentication"
	case SessionExpired:
		return "session_expired"
	case ValidationFailure:
		return "validation"
	case CapabilityFailure:
		return "capability"
	default:
		return "boundary"
	}
}

// Error is the canonical failure description.
type Error struct {
	Kind Kind
	// Status is the boundary's HTTP status, 0 when no response was received.
	Status int
	// Message is safe to show to the user.
	Message string
	// Cause is kept for logging and errors.Is/As.
	Cause error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Validation builds a ValidationFailure.
func Validation(msg string) *Error {
	return &Error{Kind: ValidationFailure, Message: msg}
}

// Capability builds a CapabilityFailure wrapping the device error.
func Capability(msg string, cause error) *Error {
	return &Error{Kind: CapabilityFailure, Message: msg, Cause: cause}
}

// StatusCarrier is implemented by boundary errors that know their HTTP status.
type StatusCarrier interface {
	StatusCode() int
}

// DetailCarrier is implemented by boundary errors that decoded a structured
// body. Either value may be empty.
type DetailCarrier interface {
	DetailText() string
	MessageText() string
}

// Normalize converts any error into an *Error. An *Error passes through
// unchanged. For credential exchanges pass credential=true so a 401 maps to
// AuthenticationFailure instead of SessionExpired.
func Normalize(err error, fallback string, credential bool) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	out := &Error{Kind: BoundaryFailure, Cause: err}

	var sc StatusCarrier
	if errors.As(err, &sc) {
		out.Status = sc.StatusCode()
		if out.Status == http.StatusUnauthorized {
			out.Kind = SessionExpired
			if credential {
				out.Kind = AuthenticationFailure
			}
		}
	}

	out.Message = MessageOf(err, fallback)
	return out
}

// MessageOf applies the ordered extraction: detail, message, transport
// error text, fallback.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}

	var dc DetailCarrier
	if errors.As(err, &dc) {
		if d := dc.DetailText(); d != "" {
			return d
		}
		if m := dc.MessageText(); m != "" {
			return m
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// Is reports whether err normalises to kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
