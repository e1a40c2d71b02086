// Package testutil provides helpers for testing handlers and middleware
// without a network listener.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/vireo-web/vireo/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewState returns a state container seeded the way the dispatcher seeds
// one, for exercising middleware and handlers directly.
func NewState(method, path string) *state.State {
	s := state.New()
	state.Put(s, state.Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
		Body:   http.NoBody,
	})
	state.Put(s, state.Params{})
	state.Put(s, state.RequestID("test-request"))
	return s
}

// Request performs an in-process request against a handler. The body may
// be a string, []byte, io.Reader, or any value to encode as JSON.
func Request(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return RequestWithHeaders(h, method, path, nil, body)
}

// RequestWithHeaders is Request with custom headers.
func RequestWithHeaders(h http.Handler, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = strings.NewReader(v)
		case []byte:
			reader = bytes.NewReader(v)
		case io.Reader:
			reader = v
		default:
			data, _ := json.Marshal(body)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if reader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON parses the recorded response body into v.
func DecodeJSON(rec *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rec.Body).Decode(v)
}
