// Package upstream classifies failures from external model providers so
// callers can decide between retrying and degrading gracefully.
package upstream

import (
	"errors"
	"fmt"
)

// Error wraps a failure from an upstream HTTP service with enough context
// to log and to classify for retry.
type Error struct {
	// Op names the operation that failed, e.g. "embeddings.embed".
	Op string
	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int
	// Err is the underlying cause.
	Err error
	// Retryable marks failures where a retry could plausibly succeed.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransport wraps a connection-level failure. These are always retryable.
func NewTransport(op string, err error) *Error {
	return &Error{Op: op, Err: err, Retryable: true}
}

// NewStatus wraps a non-2xx HTTP response. Server errors and rate limits
// are retryable, client errors are not.
func NewStatus(op string, status int, err error) *Error {
	return &Error{
		Op:        op,
		Status:    status,
		Err:       err,
		Retryable: status >= 500 || status == 429,
	}
}

// NewDecode wraps a malformed response body. Retrying will not help.
func NewDecode(op string, err error) *Error {
	return &Error{Op: op, Err: err, Retryable: false}
}

// IsRetryable reports whether err or any error it wraps is a retryable
// upstream failure.
func IsRetryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}
