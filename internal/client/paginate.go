package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/modelyard/myd/internal/errdefs"
)

// Search defaults applied when the caller sets none.
const (
	defaultSearchSize = "10"
	defaultSearchSort = "metadata.updated,DESC"
)

// List GETs every page of a listing and returns the concatenated content.
// Pages start at 0; the loop stops on an empty page or once the reported
// last page has been consumed, so each page is fetched exactly once.
func (r *Remote) List(ctx context.Context, api string, opts Options) ([]map[string]any, error) {
	page := 0
	if v := opts.Param("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid page %q", errdefs.ErrBadRequest, v)
		}
		page = parsed
	}

	var objects []map[string]any
	for {
		resp, err := r.execute(ctx, http.MethodGet, api, nil, opts.WithParam("page", strconv.Itoa(page)))
		if err != nil {
			return nil, err
		}
		content, totalPages, err := pageOf(resp)
		if err != nil {
			return nil, err
		}
		if len(content) == 0 {
			break
		}
		objects = append(objects, content...)
		if page >= totalPages-1 {
			break
		}
		page++
	}
	return objects, nil
}

// Search runs a paginated full-text query and strips the per-hit highlight
// decoration the backend attaches to results.
func (r *Remote) Search(ctx context.Context, api, query string, filter *SearchFilter, opts Options) ([]map[string]any, error) {
	if !opts.HasParam("size") {
		opts = opts.WithParam("size", defaultSearchSize)
	}
	if !opts.HasParam("sort") {
		opts = opts.WithParam("sort", defaultSearchSort)
	}
	if query != "" {
		opts = opts.WithParam("q", query)
	}
	if filter == nil {
		filter = NewSearchFilter()
	}
	for _, clause := range filter.Build() {
		opts = opts.WithAddedParam("fq", clause)
	}

	objects, err := r.List(ctx, api, opts)
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		delete(obj, "highlights")
	}
	return objects, nil
}

// pageOf extracts the content slice and page count from a page envelope.
func pageOf(resp map[string]any) ([]map[string]any, int, error) {
	rawContent, ok := resp["content"].([]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: list response has no content", errdefs.ErrBackend)
	}
	rawTotal, ok := resp["totalPages"].(float64)
	if !ok {
		return nil, 0, fmt.Errorf("%w: list response has no totalPages", errdefs.ErrBackend)
	}

	content := make([]map[string]any, 0, len(rawContent))
	for _, item := range rawContent {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, 0, fmt.Errorf("%w: list entry is not an object", errdefs.ErrBackend)
		}
		content = append(content, obj)
	}
	return content, int(rawTotal), nil
}

// SearchFilter accumulates typed filter clauses for Search. Methods chain
// and return the filter for fluent construction.
type SearchFilter struct {
	entityTypes []string
	name        string
	kind        string
	description string
	labels      []string
	since       time.Time
	until       time.Time
}

// NewSearchFilter returns an empty filter. Even an empty filter emits the
// unbounded update-time range clause, which the backend requires.
func NewSearchFilter() *SearchFilter {
	return &SearchFilter{}
}

// EntityTypes restricts results to the given entity types (OR semantics).
func (f *SearchFilter) EntityTypes(types ...string) *SearchFilter {
	f.entityTypes = append(f.entityTypes, types...)
	return f
}

// Name filters on the exact entity name.
func (f *SearchFilter) Name(name string) *SearchFilter {
	f.name = name
	return f
}

// Kind filters on the exact entity kind.
func (f *SearchFilter) Kind(kind string) *SearchFilter {
	f.kind = kind
	return f
}

// Description filters on the description text.
func (f *SearchFilter) Description(text string) *SearchFilter {
	f.description = text
	return f
}

// Labels requires all given labels (AND semantics).
func (f *SearchFilter) Labels(labels ...string) *SearchFilter {
	f.labels = append(f.labels, labels...)
	return f
}

// Since bounds the update-time range from below.
func (f *SearchFilter) Since(t time.Time) *SearchFilter {
	f.since = t
	return f
}

// Until bounds the update-time range from above.
func (f *SearchFilter) Until(t time.Time) *SearchFilter {
	f.until = t
	return f
}

// Build renders the filter as fq clauses in a stable order.
func (f *SearchFilter) Build() []string {
	var fq []string
	if len(f.entityTypes) > 0 {
		fq = append(fq, fmt.Sprintf("type:(%s)", strings.Join(f.entityTypes, " OR ")))
	}
	if f.name != "" {
		fq = append(fq, fmt.Sprintf("metadata.name:%q", f.name))
	}
	if f.kind != "" {
		fq = append(fq, fmt.Sprintf("kind:%q", f.kind))
	}
	fq = append(fq, fmt.Sprintf("metadata.updated:[%s TO %s]", timeBound(f.since), timeBound(f.until)))
	if f.description != "" {
		fq = append(fq, fmt.Sprintf("metadata.description:%q", f.description))
	}
	if len(f.labels) > 0 {
		fq = append(fq, fmt.Sprintf("metadata.labels:(%s)", strings.Join(f.labels, " AND ")))
	}
	return fq
}

func timeBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}
