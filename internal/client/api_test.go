package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathBuilders(t *testing.T) {
	assert.Equal(t, "/api/v1/projects", ProjectPath(""))
	assert.Equal(t, "/api/v1/projects/proj1", ProjectPath("proj1"))
	assert.Equal(t, "/api/v1/-/proj1/artifacts", ContextPath("proj1", "artifacts", ""))
	assert.Equal(t, "/api/v1/-/proj1/artifacts/a1b2", ContextPath("proj1", "artifacts", "a1b2"))
	assert.Equal(t, "/api/v1/-/proj1/search", SearchPath("proj1"))
}

func TestParseAPI(t *testing.T) {
	tests := []struct {
		name     string
		api      string
		expected ParsedAPI
		ok       bool
	}{
		{
			name:     "base list",
			api:      "/api/v1/projects",
			expected: ParsedAPI{EntityType: "projects"},
			ok:       true,
		},
		{
			name:     "base entity",
			api:      "/api/v1/projects/proj1",
			expected: ParsedAPI{EntityType: "projects", EntityID: "proj1"},
			ok:       true,
		},
		{
			name:     "context list",
			api:      "/api/v1/-/proj1/artifacts",
			expected: ParsedAPI{EntityType: "artifacts", Context: true},
			ok:       true,
		},
		{
			name:     "context entity",
			api:      "/api/v1/-/proj1/functions/f1",
			expected: ParsedAPI{EntityType: "functions", EntityID: "f1", Context: true},
			ok:       true,
		},
		{
			name:     "trailing slash",
			api:      "/api/v1/-/proj1/artifacts/",
			expected: ParsedAPI{EntityType: "artifacts", Context: true},
			ok:       true,
		},
		{
			name: "too deep",
			api:  "/api/v1/-/proj1/artifacts/a1/extra",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseAPI(tt.api)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, parsed)
			}
		})
	}
}
