package auth

import "github.com/modelyard/myd/internal/config"

// Type is the resolved authentication mode for a credential set. It is
// derived, never stored: recompute it whenever the active set changes.
type Type string

const (
	// TypeExchange trades a personal access token for a session token.
	TypeExchange Type = "exchange"
	// TypeOAuth2 holds an access/refresh token pair.
	TypeOAuth2 Type = "oauth2"
	// TypeAccessToken holds an access token with no way to renew it.
	TypeAccessToken Type = "access_token"
	// TypeBasic holds a user/password pair.
	TypeBasic Type = "basic"
	// TypeNone means no usable credentials.
	TypeNone Type = "none"
)

// Resolve derives the auth type from a credential set snapshot. First
// match wins. A personal access token outranks an already-issued access
// token: it is a short-lived bootstrap credential that must be traded for
// a session token at startup, so stale tokens next to it never win.
func Resolve(creds config.Set) Type {
	switch {
	case creds.Has(config.KeyPersonalAccessToken):
		return TypeExchange
	case creds.Has(config.KeyAccessToken) && creds.Has(config.KeyRefreshToken):
		return TypeOAuth2
	case creds.Has(config.KeyAccessToken):
		return TypeAccessToken
	case creds.Has(config.KeyUser) && creds.Has(config.KeyPassword):
		return TypeBasic
	default:
		return TypeNone
	}
}

// Refreshable reports whether the type supports token refresh. Basic,
// access-token-only and none are terminal.
func (t Type) Refreshable() bool {
	return t == TypeExchange || t == TypeOAuth2
}

// Bearer reports whether the type authenticates with a bearer header.
func (t Type) Bearer() bool {
	return t == TypeExchange || t == TypeOAuth2 || t == TypeAccessToken
}
