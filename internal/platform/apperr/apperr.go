// Package apperr defines the structured error kinds that cross the bridge
// between the host process and the UI surface. Callers branch on Kind, never
// on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies a failure so the UI can choose a recovery without parsing
// messages.
type Kind string

const (
	KindServiceUnreachable     Kind = "service_unreachable"
	KindInvalidRequest         Kind = "invalid_request"
	KindNotFound               Kind = "not_found"
	KindPersistenceUnavailable Kind = "persistence_unavailable"
	KindInternal               Kind = "internal"
)

// Error is a failure tagged with its Kind, the operation that produced it and
// the original message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind, so errors.Is(err,
// apperr.ServiceUnreachable) works for any wrapped failure of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ServiceUnreachable     = &Error{Kind: KindServiceUnreachable}
	InvalidRequest         = &Error{Kind: KindInvalidRequest}
	NotFound               = &Error{Kind: KindNotFound}
	PersistenceUnavailable = &Error{Kind: KindPersistenceUnavailable}
)

// New builds an *Error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the original message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps a Kind onto the bridge response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindServiceUnreachable:
		return http.StatusBadGateway
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPersistenceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Envelope is the JSON body written for every failed bridge call.
type Envelope struct {
	Error Body `json:"error"`
}

// Body carries the structured error across the bridge.
type Body struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}

// Respond writes err as an Envelope with the status for its kind.
func Respond(c echo.Context, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: err.Error()}
	}
	return c.JSON(HTTPStatus(e.Kind), Envelope{Error: Body{
		Kind:    e.Kind,
		Op:      e.Op,
		Message: MessageOf(e),
	}})
}

// FromBody rebuilds an *Error on the receiving side of the bridge.
func FromBody(b Body) *Error {
	kind := b.Kind
	if kind == "" {
		kind = KindInternal
	}
	return &Error{Kind: kind, Op: b.Op, Message: b.Message}
}
