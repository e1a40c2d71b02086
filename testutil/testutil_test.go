package testutil

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vireo-web/vireo/dispatch"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/router"
	"github.com/vireo-web/vireo/state"
)

func echoHandler() pipeline.Handler {
	return pipeline.HandlerFunc(func(ctx context.Context, s *state.State) (*response.Response, error) {
		req := state.MustBorrow[state.Request](s)
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		return response.Success(http.StatusOK, map[string]string{
			"method": req.Method,
			"body":   string(body),
		})
	})
}

func buildHandler(t *testing.T) http.Handler {
	t.Helper()
	set := pipeline.NewSet()
	b := router.NewBuilder(set)
	b.Root().POST("/echo", echoHandler())
	r, err := b.Build()
	require.NoError(t, err)
	return dispatch.New(r)
}

func TestNewStateSeedsRequestAndParams(t *testing.T) {
	s := NewState(http.MethodGet, "/things")

	req, err := state.Borrow[state.Request](s)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/things", req.Path)

	_, err = state.Borrow[state.Params](s)
	assert.NoError(t, err)
	_, err = state.Borrow[state.RequestID](s)
	assert.NoError(t, err)
}

func TestRequestEncodesJSONBody(t *testing.T) {
	h := buildHandler(t)

	rec := Request(h, http.MethodPost, "/echo", map[string]string{"k": "v"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, DecodeJSON(rec, &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, http.MethodPost, envelope.Data["method"])
	assert.JSONEq(t, `{"k":"v"}`, envelope.Data["body"])
}

func TestRequestWithHeadersSetsHeaders(t *testing.T) {
	set := pipeline.NewSet()
	b := router.NewBuilder(set)
	b.Root().GET("/hdr", pipeline.HandlerFunc(
		func(ctx context.Context, s *state.State) (*response.Response, error) {
			req := state.MustBorrow[state.Request](s)
			return response.String(http.StatusOK, req.Header.Get("X-Custom")), nil
		}))
	r, err := b.Build()
	require.NoError(t, err)

	rec := RequestWithHeaders(dispatch.New(r), http.MethodGet, "/hdr",
		map[string]string{"X-Custom": "yes"}, nil)
	assert.Equal(t, "yes", rec.Body.String())
}
