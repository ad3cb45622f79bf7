// internal/clients/errors.go
package clients

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by Get when the API answers 404.
var ErrNotFound = errors.New("book not found")

// Error is the single failure kind of the books API client: either the
// request could not be completed or the API answered with a non-2xx status.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func statusError(op, message string, code int) *Error {
	cause := fmt.Errorf("unexpected status code: %d", code)
	if code == http.StatusNotFound {
		cause = fmt.Errorf("%w: unexpected status code: %d", ErrNotFound, code)
	}
	return &Error{Op: op, StatusCode: code, Message: message, Err: cause}
}
