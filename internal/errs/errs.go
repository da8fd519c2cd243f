// Package errs defines the error taxonomy shared by the resolver, the stream
// layer and the turn orchestrator.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTransport     Kind = "transport"
	KindUpstream      Kind = "upstream"
	KindFrame         Kind = "frame"
	KindAuthorization Kind = "authorization"
	KindSequence      Kind = "sequence"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the taxonomy kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Transport wraps connect, timeout and read failures. The message is the
// underlying one.
func Transport(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindTransport, Cause: cause}
}

// Upstream reports a non-2xx response or an unusable response body.
func Upstream(status int, body string) error {
	if status == 0 {
		return &Error{Kind: KindUpstream, Message: fmt.Sprintf("upstream error: %s", body)}
	}
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf("upstream status %d: %s", status, body)}
}

func UpstreamCause(message string, cause error) error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause}
}

func Authorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}
