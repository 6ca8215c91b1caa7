package config

import (
	"fmt"
	"strings"
)

// Origin identifies the source a credential value was loaded from.
type Origin string

const (
	// OriginEnv marks credentials read from process environment variables.
	OriginEnv Origin = "env"
	// OriginFile marks credentials read from the profile file. Only this
	// origin is ever rewritten at runtime.
	OriginFile Origin = "file"
)

// Canonical credential keys. The profile file stores them as-is; the
// environment uses the same names uppercased with the "MYD_" prefix.
const (
	KeyEndpoint            = "endpoint"
	KeyIssuer              = "issuer"
	KeyUser                = "user"
	KeyPassword            = "password"
	KeyClientID            = "client_id"
	KeyAccessToken         = "access_token"
	KeyRefreshToken        = "refresh_token"
	KeyPersonalAccessToken = "personal_access_token"
	KeyTokenEndpoint       = "token_endpoint"
)

// Keys lists every credential key the loader knows about.
var Keys = []string{
	KeyEndpoint,
	KeyIssuer,
	KeyUser,
	KeyPassword,
	KeyClientID,
	KeyAccessToken,
	KeyRefreshToken,
	KeyPersonalAccessToken,
	KeyTokenEndpoint,
}

// EnvVar returns the environment variable name for a credential key,
// e.g. "endpoint" -> "MYD_ENDPOINT".
func EnvVar(key string) string {
	return "MYD_" + strings.ToUpper(key)
}

// Set is one credential set: a mapping from credential key to value.
// Absent keys are simply not present in the map.
type Set map[string]string

// Get returns the value for key and whether it is set to a non-empty value.
func (s Set) Get(key string) (string, bool) {
	v, ok := s[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Has reports whether key is present with a non-empty value.
func (s Set) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether two sets hold exactly the same non-empty values.
func (s Set) Equal(other Set) bool {
	count := func(m Set) int {
		n := 0
		for _, v := range m {
			if v != "" {
				n++
			}
		}
		return n
	}
	if count(s) != count(other) {
		return false
	}
	for k, v := range s {
		if v == "" {
			continue
		}
		if other[k] != v {
			return false
		}
	}
	return true
}

// sanitizeEndpoint validates the endpoint scheme, trims whitespace and
// strips a trailing slash. An empty endpoint passes through untouched.
func sanitizeEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "", fmt.Errorf("invalid endpoint scheme %q: must start with http:// or https://", endpoint)
	}
	return strings.TrimSuffix(endpoint, "/"), nil
}
