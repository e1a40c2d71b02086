package router

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

func okHandler(body string) pipeline.Handler {
	return pipeline.HandlerFunc(func(ctx context.Context, s *state.State) (*response.Response, error) {
		return response.String(200, body), nil
	})
}

func build(t *testing.T, declare func(root *Group)) *Router {
	t.Helper()
	b := NewBuilder(pipeline.NewSet())
	declare(b.Root())
	r, err := b.Build()
	require.NoError(t, err)
	return r
}

func TestMatchStaticRoute(t *testing.T) {
	h := okHandler("users")
	r := build(t, func(root *Group) {
		root.GET("/users", h)
		root.GET("/", okHandler("index"))
	})

	m := r.Match(http.MethodGet, "/users")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "/users", m.Route.Pattern)
	assert.Empty(t, m.Params)

	m = r.Match(http.MethodGet, "/")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "/", m.Route.Pattern)
}

func TestMatchDynamicBindsLiteralText(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/items/{id}", okHandler("item"))
	})

	m := r.Match(http.MethodGet, "/items/42")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "42", m.Params.Get("id"))

	// An empty dynamic segment never matches.
	m = r.Match(http.MethodGet, "/items/")
	assert.Equal(t, OutcomeNotFound, m.Outcome)
}

func TestStaticWinsOverDynamic(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/items/new", okHandler("new"))
		root.GET("/items/{id}", okHandler("item"))
	})

	m := r.Match(http.MethodGet, "/items/new")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "/items/new", m.Route.Pattern)
	assert.Empty(t, m.Params)

	m = r.Match(http.MethodGet, "/items/77")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "/items/{id}", m.Route.Pattern)
	assert.Equal(t, "77", m.Params.Get("id"))
}

func TestGlobConsumesRemainder(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/files/*rest", okHandler("files"))
	})

	m := r.Match(http.MethodGet, "/files/a/b/c")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "a/b/c", m.Params.Get("rest"))
}

func TestGlobAcceptsZeroSegments(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/files/*rest", okHandler("files"))
	})

	// Documented policy: both forms bind rest == "".
	for _, path := range []string{"/files", "/files/"} {
		m := r.Match(http.MethodGet, path)
		require.Equal(t, OutcomeMatched, m.Outcome, path)
		assert.Equal(t, "", m.Params.Get("rest"), path)
	}
}

func TestDynamicWinsOverGlob(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/v/{version}", okHandler("version"))
		root.GET("/v/*rest", okHandler("rest"))
	})

	m := r.Match(http.MethodGet, "/v/1")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "/v/{version}", m.Route.Pattern)

	// The empty segment is refused by the dynamic child, so the glob takes it.
	m = r.Match(http.MethodGet, "/v/")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, "/v/*rest", m.Route.Pattern)
	assert.Equal(t, "", m.Params.Get("rest"))

	// Descent is greedy with no backtracking: once the dynamic child accepts
	// a segment, the glob sibling is out of play.
	m = r.Match(http.MethodGet, "/v/1/2")
	assert.Equal(t, OutcomeNotFound, m.Outcome)
}

func TestMethodNotAllowed(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/items", okHandler("list"))
		root.POST("/items", okHandler("create"))
	})

	m := r.Match(http.MethodDelete, "/items")
	require.Equal(t, OutcomeMethodNotAllowed, m.Outcome)
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, m.Allowed)
	assert.NotContains(t, m.Allowed, http.MethodDelete)
}

func TestNotFound(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/items", okHandler("list"))
	})

	assert.Equal(t, OutcomeNotFound, r.Match(http.MethodGet, "/missing").Outcome)
	assert.Equal(t, OutcomeNotFound, r.Match(http.MethodGet, "/items/deeper").Outcome)
}

func TestGroupPrefixAndChainOrder(t *testing.T) {
	set := pipeline.NewSet()
	common := set.MustAdd(pipeline.New("common"))
	api := set.MustAdd(pipeline.New("api"))

	b := NewBuilder(set)
	root := b.Root(common)
	root.GET("/health", okHandler("health"))
	apiGroup := root.Group("/api", api)
	apiGroup.GET("/items", okHandler("items"))

	r, err := b.Build()
	require.NoError(t, err)

	m := r.Match(http.MethodGet, "/api/items")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, []string{"common", "api"}, m.Route.Chain.Pipelines())

	m = r.Match(http.MethodGet, "/health")
	require.Equal(t, OutcomeMatched, m.Outcome)
	assert.Equal(t, []string{"common"}, m.Route.Chain.Pipelines())
}

func TestBuildRejectsDuplicateRoute(t *testing.T) {
	b := NewBuilder(pipeline.NewSet())
	root := b.Root()
	root.GET("/items", okHandler("a"))
	root.GET("/items", okHandler("b"))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate route")
}

func TestBuildRejectsDynamicNameConflict(t *testing.T) {
	b := NewBuilder(pipeline.NewSet())
	root := b.Root()
	root.GET("/items/{id}", okHandler("a"))
	root.GET("/items/{slug}/x", okHandler("b"))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")
}

func TestBuildRejectsNonTrailingGlob(t *testing.T) {
	b := NewBuilder(pipeline.NewSet())
	root := b.Root()
	root.GET("/files/*rest/meta", okHandler("a"))

	_, err := b.Build()
	require.Error(t, err)
}

func TestBuildRejectsMalformedSegment(t *testing.T) {
	b := NewBuilder(pipeline.NewSet())
	root := b.Root()
	root.GET("/items/{id", okHandler("a"))

	_, err := b.Build()
	require.Error(t, err)
}

func TestRootRejectsUnknownPipeline(t *testing.T) {
	b := NewBuilder(pipeline.NewSet())
	b.Root(pipeline.ID(9))

	_, err := b.Build()
	require.Error(t, err)
}

func TestSameMethodDifferentDynamicValuesShareRoute(t *testing.T) {
	r := build(t, func(root *Group) {
		root.GET("/items/{id}", okHandler("item"))
	})

	a := r.Match(http.MethodGet, "/items/1")
	z := r.Match(http.MethodGet, "/items/zebra")
	require.Equal(t, OutcomeMatched, a.Outcome)
	require.Equal(t, OutcomeMatched, z.Outcome)
	assert.Same(t, a.Route, z.Route)
	assert.Equal(t, "1", a.Params.Get("id"))
	assert.Equal(t, "zebra", z.Params.Get("id"))
}
