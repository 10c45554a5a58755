// pkg/microbrowser/errors.go
package microbrowser

import (
	"errors"
	"fmt"
)

// Typed errors let callers classify failures with errors.Is against the
// sentinels below, or errors.As against the concrete types when they need the
// lookup key or the underlying transport error.

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument matches every *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState matches every *StateError.
	ErrInvalidState = errors.New("invalid state")
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport failure")
)

// NotFoundError reports a failed lookup of a link, form, control, item,
// property or cookie.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError for the given kind of lookup.
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// ArgumentError reports caller input that the document cannot accept.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrInvalidArgument) succeed.
func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NewArgumentError formats an ArgumentError.
func NewArgumentError(format string, args ...any) *ArgumentError {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// StateError reports a document whose shape does not allow the operation,
// such as a form without a submit button.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrInvalidState) succeed.
func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// NewStateError formats a StateError.
func NewStateError(format string, args ...any) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

// TransportError wraps a network or driver failure during a load.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) succeed.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// NewTransportError wraps err as a TransportError.
func NewTransportError(op, url string, err error) *TransportError {
	return &TransportError{Op: op, URL: url, Err: err}
}
