package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelyard/myd/internal/errdefs"
)

func TestOpenPrefersEnvOrigin(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyEndpoint), "https://env.example.com")
	require.NoError(t, loader.WriteCredentials("default", map[string]string{
		KeyEndpoint: "https://file.example.com",
	}))

	creds, err := Open(loader)
	require.NoError(t, err)
	assert.Equal(t, OriginEnv, creds.Origin())
	assert.Equal(t, "https://env.example.com", creds.Endpoint())
}

func TestOpenFallsBackToFileOrigin(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	require.NoError(t, loader.WriteCredentials("default", map[string]string{
		KeyEndpoint: "https://file.example.com",
	}))

	creds, err := Open(loader)
	require.NoError(t, err)
	assert.Equal(t, OriginFile, creds.Origin())
	assert.Equal(t, "https://file.example.com", creds.Endpoint())
}

func TestOpenRequiresEndpoint(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyAccessToken), "tok")

	_, err := Open(loader)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestOpenSanitizesEndpoint(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyEndpoint), "  https://core.example.com/ ")

	creds, err := Open(loader)
	require.NoError(t, err)
	assert.Equal(t, "https://core.example.com", creds.Endpoint())
}

func TestOpenRejectsBadScheme(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyEndpoint), "core.example.com")

	_, err := Open(loader)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestFileOriginBackfillsFromEnv(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyEndpoint), "https://core.example.com")
	t.Setenv(EnvVar(KeyPersonalAccessToken), "pat-1")
	require.NoError(t, loader.WriteCredentials("default", map[string]string{
		KeyAccessToken: "tok-1",
	}))

	creds, err := Open(loader)
	require.NoError(t, err)

	// The token endpoint never returns endpoint or PAT, so the file set
	// inherits them from the environment
	file := creds.Get(OriginFile)
	assert.Equal(t, "https://core.example.com", file[KeyEndpoint])
	assert.Equal(t, "pat-1", file[KeyPersonalAccessToken])
	assert.Equal(t, "tok-1", file[KeyAccessToken])
}

func TestWriteFileActivatesFileOrigin(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyEndpoint), "https://core.example.com")

	creds, err := Open(loader)
	require.NoError(t, err)
	assert.Equal(t, OriginEnv, creds.Origin())

	require.NoError(t, creds.WriteFile(map[string]string{
		KeyAccessToken:  "tok-new",
		KeyRefreshToken: "refresh-new",
	}))

	assert.Equal(t, OriginFile, creds.Origin())
	active := creds.Active()
	assert.Equal(t, "tok-new", active[KeyAccessToken])
	assert.Equal(t, "refresh-new", active[KeyRefreshToken])

	// And the values really are on disk
	onDisk, err := loader.LoadFile("default")
	require.NoError(t, err)
	assert.Equal(t, "tok-new", onDisk[KeyAccessToken])
}

func TestFileChangedOnDisk(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	require.NoError(t, loader.WriteCredentials("default", map[string]string{
		KeyEndpoint:    "https://core.example.com",
		KeyAccessToken: "tok-1",
	}))

	creds, err := Open(loader)
	require.NoError(t, err)
	assert.False(t, creds.FileChangedOnDisk())

	// Simulate another process rotating the token
	require.NoError(t, loader.WriteCredentials("default", map[string]string{
		KeyAccessToken: "tok-2",
	}))
	assert.True(t, creds.FileChangedOnDisk())

	require.NoError(t, creds.ReloadFile())
	assert.False(t, creds.FileChangedOnDisk())
	tok, _ := creds.Get(OriginFile).Get(KeyAccessToken)
	assert.Equal(t, "tok-2", tok)
}

func TestSwitchProfile(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	require.NoError(t, loader.WriteCredentials("default", map[string]string{
		KeyEndpoint: "https://a.example.com",
	}))
	require.NoError(t, loader.WriteCredentials("staging", map[string]string{
		KeyEndpoint: "https://b.example.com",
	}))
	require.NoError(t, loader.SetCurrentProfile("default"))

	creds, err := Open(loader)
	require.NoError(t, err)
	assert.Equal(t, "default", creds.Profile())
	assert.Equal(t, "https://a.example.com", creds.Endpoint())

	require.NoError(t, creds.SwitchProfile("staging"))
	assert.Equal(t, "staging", creds.Profile())
	assert.Equal(t, "https://b.example.com", creds.Endpoint())
	assert.Equal(t, "staging", loader.CurrentProfile())
}

func TestActiveReturnsSnapshot(t *testing.T) {
	clearEnv(t)
	loader := tempLoader(t)
	t.Setenv(EnvVar(KeyEndpoint), "https://core.example.com")

	creds, err := Open(loader)
	require.NoError(t, err)

	snapshot := creds.Active()
	snapshot[KeyEndpoint] = "https://tampered.example.com"
	assert.Equal(t, "https://core.example.com", creds.Endpoint())
}

func TestSetEqual(t *testing.T) {
	a := Set{"endpoint": "x", "user": "u"}
	b := Set{"endpoint": "x", "user": "u"}
	assert.True(t, a.Equal(b))

	b["user"] = "other"
	assert.False(t, a.Equal(b))

	// Empty values count as absent
	c := Set{"endpoint": "x", "user": "u", "password": ""}
	assert.True(t, a.Equal(c))
}
