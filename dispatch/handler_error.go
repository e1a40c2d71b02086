package dispatch

import (
	"fmt"
	"net/http"
)

// HandlerError wraps a failure from a middleware or handler together with the
// HTTP status the response should carry. The cause is logged, never sent to
// the client.
type HandlerError struct {
	Status int
	Cause  error
}

// NewHandlerError wraps err with a 500 status. Use WithStatus to change it.
func NewHandlerError(err error) *HandlerError {
	return &HandlerError{Status: http.StatusInternalServerError, Cause: err}
}

// WithStatus returns a copy carrying the given status code.
func (e *HandlerError) WithStatus(status int) *HandlerError {
	return &HandlerError{Status: status, Cause: e.Cause}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler failed to process request: %v", e.Cause)
}

func (e *HandlerError) Unwrap() error { return e.Cause }
