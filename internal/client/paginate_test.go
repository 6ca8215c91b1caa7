package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListWalksAllPages(t *testing.T) {
	pages := [][]any{
		{map[string]any{"id": "a"}, map[string]any{"id": "b"}},
		{map[string]any{"id": "c"}},
		{map[string]any{"id": "d"}},
	}

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(map[string]any{
			"content":    pages[page],
			"totalPages": float64(len(pages)),
		})
	}))
	defer srv.Close()

	remote, _ := testRemote(t, srv.URL)
	objects, err := remote.List(context.Background(), ContextPath("proj1", "artifacts", ""), NewOptions())
	require.NoError(t, err)

	// One request per page, no trailing empty-page fetch
	assert.Equal(t, 3, calls)
	require.Len(t, objects, 4)
	assert.Equal(t, "a", objects[0]["id"])
	assert.Equal(t, "d", objects[3]["id"])
}

func TestListTerminatesOnEmptyLastPage(t *testing.T) {
	pages := [][]any{
		{map[string]any{"id": "a"}, map[string]any{"id": "b"}},
		{map[string]any{"id": "c"}},
		{},
	}

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(map[string]any{
			"content":    pages[page],
			"totalPages": float64(len(pages)),
		})
	}))
	defer srv.Close()

	remote, _ := testRemote(t, srv.URL)
	objects, err := remote.List(context.Background(), ContextPath("proj1", "artifacts", ""), NewOptions())
	require.NoError(t, err)

	// The empty trailing page ends the walk; its content contributes nothing
	assert.Equal(t, 3, calls)
	require.Len(t, objects, 3)
	assert.Equal(t, "c", objects[2]["id"])
}

func TestListStopsOnEmptyPage(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"content":    []any{},
			"totalPages": float64(5),
		})
	}))
	defer srv.Close()

	remote, _ := testRemote(t, srv.URL)
	objects, err := remote.List(context.Background(), ContextPath("proj1", "artifacts", ""), NewOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, objects)
}

func TestListMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))
	defer srv.Close()

	remote, _ := testRemote(t, srv.URL)
	_, err := remote.List(context.Background(), ContextPath("proj1", "artifacts", ""), NewOptions())
	require.Error(t, err)
}

func TestSearchDefaultsAndFilter(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"content": []any{
				map[string]any{"id": "a", "highlights": map[string]any{"metadata.name": []any{"<em>x</em>"}}},
			},
			"totalPages": float64(1),
		})
	}))
	defer srv.Close()

	filter := NewSearchFilter().
		EntityTypes("model", "artifact").
		Name("reports").
		Kind("table").
		Description("quarterly").
		Labels("gold", "ml")

	remote, _ := testRemote(t, srv.URL)
	objects, err := remote.Search(context.Background(), SearchPath("proj1"), "sales", filter, NewOptions())
	require.NoError(t, err)

	assert.Equal(t, "10", gotQuery.Get("size"))
	assert.Equal(t, "metadata.updated,DESC", gotQuery.Get("sort"))
	assert.Equal(t, "sales", gotQuery.Get("q"))
	assert.Equal(t, []string{
		`type:(model OR artifact)`,
		`metadata.name:"reports"`,
		`kind:"table"`,
		`metadata.updated:[* TO *]`,
		`metadata.description:"quarterly"`,
		`metadata.labels:(gold AND ml)`,
	}, gotQuery["fq"])

	// Highlight decoration never reaches the caller
	require.Len(t, objects, 1)
	_, present := objects[0]["highlights"]
	assert.False(t, present)
}

func TestSearchEmptyFilterStillBoundsTime(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"content":    []any{},
			"totalPages": float64(0),
		})
	}))
	defer srv.Close()

	remote, _ := testRemote(t, srv.URL)
	_, err := remote.Search(context.Background(), SearchPath("proj1"), "", nil, NewOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{`metadata.updated:[* TO *]`}, gotQuery["fq"])
	assert.False(t, gotQuery.Has("q"))
}

func TestSearchCallerOptionsWin(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"content":    []any{},
			"totalPages": float64(0),
		})
	}))
	defer srv.Close()

	opts := NewOptions().WithParam("size", "50").WithParam("sort", "metadata.created,ASC")
	remote, _ := testRemote(t, srv.URL)
	_, err := remote.Search(context.Background(), SearchPath("proj1"), "", nil, opts)
	require.NoError(t, err)

	assert.Equal(t, "50", gotQuery.Get("size"))
	assert.Equal(t, "metadata.created,ASC", gotQuery.Get("sort"))
}

func TestSearchFilterTimeBounds(t *testing.T) {
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 7, 1, 12, 30, 0, 0, time.UTC)

	clauses := NewSearchFilter().Since(since).Until(until).Build()
	assert.Contains(t, clauses, "metadata.updated:[2025-06-01T00:00:00Z TO 2025-07-01T12:30:00Z]")

	open := NewSearchFilter().Since(since).Build()
	assert.Contains(t, open, "metadata.updated:[2025-06-01T00:00:00Z TO *]")
}
