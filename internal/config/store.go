package config

import (
	"fmt"

	"github.com/modelyard/myd/internal/errdefs"
)

// Credentials holds the two independent credential sets for the current
// profile and tracks which origin is active. Environment values are
// preferred for initial resolution; the file origin is the only one ever
// rewritten at runtime.
//
// Credentials assumes single-writer access within one request/refresh
// cycle; the refresh service serializes its mutations externally.
type Credentials struct {
	loader  *Loader
	profile string
	origin  Origin
	env     Set
	file    Set
}

// Open loads both origins for the current profile and validates that the
// endpoint is configured in at least one of them.
func Open(loader *Loader) (*Credentials, error) {
	c := &Credentials{
		loader:  loader,
		profile: loader.CurrentProfile(),
		origin:  OriginEnv,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	// A fully missing env origin is tolerated when the file is complete
	if len(c.env) == 0 {
		c.origin = OriginFile
	}
	if !c.env.Has(KeyEndpoint) && !c.file.Has(KeyEndpoint) {
		return nil, fmt.Errorf("%w: %s is set in neither the environment nor profile %q",
			errdefs.ErrConfiguration, EnvVar(KeyEndpoint), c.profile)
	}
	return c, nil
}

// Reload re-reads both origins from their sources.
func (c *Credentials) Reload() error {
	env, err := sanitize(c.loader.LoadEnv())
	if err != nil {
		return fmt.Errorf("%w: %v", errdefs.ErrConfiguration, err)
	}
	c.env = env
	return c.ReloadFile()
}

// ReloadFile re-reads only the file origin from disk.
func (c *Credentials) ReloadFile() error {
	file, err := c.loadFile()
	if err != nil {
		return err
	}
	c.file = file
	return nil
}

func (c *Credentials) loadFile() (Set, error) {
	file, err := c.loader.LoadFile(c.profile)
	if err != nil {
		return nil, err
	}
	// The token endpoint never hands back the endpoint or the personal
	// access token, so the file origin backfills both from the environment.
	for _, key := range []string{KeyEndpoint, KeyPersonalAccessToken} {
		if !file.Has(key) {
			if v, ok := c.env.Get(key); ok {
				file[key] = v
			}
		}
	}
	return sanitize(file)
}

func sanitize(creds Set) (Set, error) {
	for _, key := range []string{KeyEndpoint, KeyIssuer} {
		if v, ok := creds.Get(key); ok {
			clean, err := sanitizeEndpoint(v)
			if err != nil {
				return nil, err
			}
			creds[key] = clean
		}
	}
	return creds, nil
}

// Profile returns the profile currently in effect.
func (c *Credentials) Profile() string {
	return c.profile
}

// SwitchProfile changes the current profile, persists the pointer and
// forces a reload of file-sourced credentials before the next request.
func (c *Credentials) SwitchProfile(name string) error {
	if err := c.loader.SetCurrentProfile(name); err != nil {
		return err
	}
	c.profile = name
	c.origin = OriginEnv
	if err := c.Reload(); err != nil {
		return err
	}
	if len(c.env) == 0 {
		c.origin = OriginFile
	}
	return nil
}

// Origin returns the active credential origin.
func (c *Credentials) Origin() Origin {
	return c.origin
}

// UseFile switches the active origin to the file.
func (c *Credentials) UseFile() {
	c.origin = OriginFile
}

// UseEnv switches the active origin to the environment.
func (c *Credentials) UseEnv() {
	c.origin = OriginEnv
}

// Get returns a snapshot of the credential set for an origin.
func (c *Credentials) Get(origin Origin) Set {
	if origin == OriginFile {
		return c.file.Clone()
	}
	return c.env.Clone()
}

// Set replaces the in-memory credential set for an origin. It does not
// persist anything; use WriteFile for that.
func (c *Credentials) Set(origin Origin, creds Set) {
	if origin == OriginFile {
		c.file = creds.Clone()
		return
	}
	c.env = creds.Clone()
}

// Active returns a snapshot of the credential set for the active origin.
func (c *Credentials) Active() Set {
	return c.Get(c.origin)
}

// FileChangedOnDisk reports whether the persisted file credentials differ
// from the cached file set, e.g. after an out-of-process token rotation.
func (c *Credentials) FileChangedOnDisk() bool {
	fresh, err := c.loadFile()
	if err != nil {
		return false
	}
	return !fresh.Equal(c.file)
}

// WriteFile persists values into the current profile section, reloads the
// file origin and makes it active. Refreshed tokens are only ever written
// here, never back to the environment.
func (c *Credentials) WriteFile(values map[string]string) error {
	if err := c.loader.WriteCredentials(c.profile, values); err != nil {
		return err
	}
	if err := c.ReloadFile(); err != nil {
		return err
	}
	c.origin = OriginFile
	return nil
}

// Endpoint returns the backend endpoint, preferring the active origin.
func (c *Credentials) Endpoint() string {
	if v, ok := c.Active().Get(KeyEndpoint); ok {
		return v
	}
	if v, ok := c.env.Get(KeyEndpoint); ok {
		return v
	}
	v, _ := c.file.Get(KeyEndpoint)
	return v
}
