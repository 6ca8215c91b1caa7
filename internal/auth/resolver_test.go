package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modelyard/myd/internal/config"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		creds    config.Set
		expected Type
	}{
		{
			name:     "empty set",
			creds:    config.Set{},
			expected: TypeNone,
		},
		{
			name:     "personal access token",
			creds:    config.Set{config.KeyPersonalAccessToken: "pat"},
			expected: TypeExchange,
		},
		{
			name: "pat outranks stale token pair",
			creds: config.Set{
				config.KeyPersonalAccessToken: "pat",
				config.KeyAccessToken:         "stale",
				config.KeyRefreshToken:        "stale",
			},
			expected: TypeExchange,
		},
		{
			name: "access and refresh token",
			creds: config.Set{
				config.KeyAccessToken:  "tok",
				config.KeyRefreshToken: "refresh",
			},
			expected: TypeOAuth2,
		},
		{
			name:     "access token only",
			creds:    config.Set{config.KeyAccessToken: "tok"},
			expected: TypeAccessToken,
		},
		{
			name:     "refresh token alone is unusable",
			creds:    config.Set{config.KeyRefreshToken: "refresh"},
			expected: TypeNone,
		},
		{
			name: "basic",
			creds: config.Set{
				config.KeyUser:     "alice",
				config.KeyPassword: "s3cret",
			},
			expected: TypeBasic,
		},
		{
			name: "token outranks basic",
			creds: config.Set{
				config.KeyAccessToken: "tok",
				config.KeyUser:        "alice",
				config.KeyPassword:    "s3cret",
			},
			expected: TypeAccessToken,
		},
		{
			name:     "user without password",
			creds:    config.Set{config.KeyUser: "alice"},
			expected: TypeNone,
		},
		{
			name: "empty values are absent",
			creds: config.Set{
				config.KeyAccessToken: "",
				config.KeyUser:        "alice",
				config.KeyPassword:    "s3cret",
			},
			expected: TypeBasic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.creds))
		})
	}
}

func TestTypeRefreshable(t *testing.T) {
	assert.True(t, TypeExchange.Refreshable())
	assert.True(t, TypeOAuth2.Refreshable())
	assert.False(t, TypeAccessToken.Refreshable())
	assert.False(t, TypeBasic.Refreshable())
	assert.False(t, TypeNone.Refreshable())
}

func TestTypeBearer(t *testing.T) {
	assert.True(t, TypeExchange.Bearer())
	assert.True(t, TypeOAuth2.Bearer())
	assert.True(t, TypeAccessToken.Bearer())
	assert.False(t, TypeBasic.Bearer())
	assert.False(t, TypeNone.Bearer())
}
