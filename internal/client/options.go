package client

import (
	"net/http"
	"net/url"
)

// Options carries per-request query parameters and headers. It is
// immutable: every With method returns a modified copy, so builder stages
// compose without mutating state shared with the caller or with an
// in-flight pagination sequence.
type Options struct {
	params  url.Values
	headers http.Header
}

// NewOptions returns an empty option set.
func NewOptions() Options {
	return Options{}
}

func (o Options) clone() Options {
	out := Options{
		params:  make(url.Values, len(o.params)),
		headers: make(http.Header, len(o.headers)),
	}
	for k, vs := range o.params {
		out.params[k] = append([]string(nil), vs...)
	}
	for k, vs := range o.headers {
		out.headers[k] = append([]string(nil), vs...)
	}
	return out
}

// WithParam returns a copy with the query parameter set.
func (o Options) WithParam(key, value string) Options {
	out := o.clone()
	out.params.Set(key, value)
	return out
}

// WithAddedParam returns a copy with an additional value appended to the
// query parameter, preserving any existing values.
func (o Options) WithAddedParam(key, value string) Options {
	out := o.clone()
	out.params.Add(key, value)
	return out
}

// WithHeader returns a copy with the header set.
func (o Options) WithHeader(key, value string) Options {
	out := o.clone()
	out.headers.Set(key, value)
	return out
}

// Param returns the first value of a query parameter, or "".
func (o Options) Param(key string) string {
	return o.params.Get(key)
}

// HasParam reports whether the query parameter is present.
func (o Options) HasParam(key string) bool {
	return o.params.Has(key)
}

// query renders the encoded query string.
func (o Options) query() string {
	return o.params.Encode()
}

// applyHeaders copies the option headers onto a request.
func (o Options) applyHeaders(req *http.Request) {
	for k, vs := range o.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
