package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsImmutability(t *testing.T) {
	base := NewOptions().WithParam("kind", "model")

	derived := base.WithParam("kind", "dataset").WithParam("page", "3")

	// The original is untouched by derived modifications
	assert.Equal(t, "model", base.Param("kind"))
	assert.False(t, base.HasParam("page"))
	assert.Equal(t, "dataset", derived.Param("kind"))
	assert.Equal(t, "3", derived.Param("page"))
}

func TestOptionsWithAddedParam(t *testing.T) {
	opts := NewOptions().
		WithAddedParam("fq", "kind:\"model\"").
		WithAddedParam("fq", "metadata.name:\"x\"")

	assert.Equal(t, "fq=kind%3A%22model%22&fq=metadata.name%3A%22x%22", opts.query())
}

func TestOptionsHeadersDoNotLeak(t *testing.T) {
	base := NewOptions().WithHeader("X-Custom", "a")
	derived := base.WithHeader("X-Custom", "b")

	assert.Equal(t, "a", base.headers.Get("X-Custom"))
	assert.Equal(t, "b", derived.headers.Get("X-Custom"))
}

func TestOptionsZeroValueUsable(t *testing.T) {
	var opts Options
	assert.Equal(t, "", opts.query())
	assert.False(t, opts.HasParam("page"))

	with := opts.WithParam("page", "0")
	assert.Equal(t, "0", with.Param("page"))
}
