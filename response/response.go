// Package response provides the wire response value produced by handlers and
// middleware, with standardized JSON helpers.
package response

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is the outcome of a dispatched request: status, headers and body.
// Handlers and middleware build one; the dispatcher writes it to the wire.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New creates an empty response with the given status code.
func New(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// WithHeader sets a header and returns the response for chaining.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// String creates a text/plain response.
func String(status int, body string) *Response {
	r := New(status)
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(body)
	return r
}

// NoContent creates a bodyless response.
func NoContent(status int) *Response {
	return New(status)
}

// JSON creates an application/json response from v.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := New(status)
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = body
	return r, nil
}

// Envelope is the standard API payload shape.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Success creates a JSON response wrapping data in the standard envelope.
func Success(status int, data any) (*Response, error) {
	return JSON(status, Envelope{Success: true, Data: data})
}

// Error creates a JSON error response in the standard envelope.
func Error(status int, message string) *Response {
	r, err := JSON(status, Envelope{Success: false, Error: message, Code: status})
	if err != nil {
		// The envelope contains only scalars; marshalling cannot fail.
		return String(status, message)
	}
	return r
}

// Write renders the response onto w. The dispatcher is the only caller during
// normal operation; tests may call it directly.
func (r *Response) Write(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
