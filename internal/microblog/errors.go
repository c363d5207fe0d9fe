package microblog

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure (connection refused,
// timeout, 5xx). Retrying the same request later is reasonable.
type TransportError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the backend returned a payload that could
// not be interpreted. Mappers degrade to Unknown variants where they
// can; this error means the whole page was unusable.
type ProtocolError struct {
	Operation string
	Detail    string
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %s", e.Operation, e.Detail)
}

// AuthError means the stored credentials were rejected. This is the
// one error kind expected to propagate to the UI for re-authentication.
type AuthError struct {
	Host string
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected by %s", e.Host)
}

// UnsupportedError means the backend has no equivalent of the
// requested operation (e.g. feed creation where none exists).
type UnsupportedError struct {
	Operation string
	Platform  string
}

// Error implements the error interface
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported on %s", e.Operation, e.Platform)
}

// NotFoundError means the entity was deleted or never existed upstream
type NotFoundError struct {
	Kind string
	ID   string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsAuthError reports whether err is (or wraps) an AuthError
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
