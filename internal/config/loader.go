package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const (
	// DefaultProfile is used when neither the environment nor the profile
	// file names a current profile.
	DefaultProfile = "default"

	// currentProfileKey is the key in the DEFAULT section pointing at the
	// profile in effect.
	currentProfileKey = "current_profile"
)

// Loader reads credentials from the process environment and from the
// profile file, and writes refreshed values back to the file. File writes
// are whole-file rewrites: read everything, mutate in memory, save. There
// is no file locking; last writer wins.
type Loader struct {
	path string
}

// NewLoader creates a loader against the default XDG credentials path.
func NewLoader() *Loader {
	return &Loader{path: CredentialsPath()}
}

// NewLoaderAt creates a loader against an explicit file path.
func NewLoaderAt(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the profile file path.
func (l *Loader) Path() string {
	return l.path
}

// LoadEnv reads every known credential key from the environment.
// Missing variables are simply absent from the returned set.
func (l *Loader) LoadEnv() Set {
	creds := make(Set)
	for _, key := range Keys {
		if v := os.Getenv(EnvVar(key)); v != "" {
			creds[key] = v
		}
	}
	return creds
}

// CurrentProfile resolves the profile in effect: the MYD_PROFILE
// environment variable wins, then the current_profile pointer in the
// file's DEFAULT section, then "default".
func (l *Loader) CurrentProfile() string {
	if p := os.Getenv(EnvVar("profile")); p != "" {
		return p
	}
	cfg, err := l.open()
	if err != nil {
		return DefaultProfile
	}
	if p := cfg.Section(ini.DefaultSection).Key(currentProfileKey).String(); p != "" {
		return p
	}
	return DefaultProfile
}

// LoadFile reads the credential keys of one profile section. A missing
// file or missing section yields an empty set, not an error.
func (l *Loader) LoadFile(profile string) (Set, error) {
	cfg, err := l.open()
	if err != nil {
		return nil, err
	}
	creds := make(Set)
	if !cfg.HasSection(profile) {
		return creds, nil
	}
	section := cfg.Section(profile)
	for _, key := range Keys {
		if v := section.Key(key).String(); v != "" {
			creds[key] = v
		}
	}
	return creds, nil
}

// WriteCredentials merges values into the profile section and rewrites the
// whole file. The current_profile pointer is updated to the written
// profile, matching the behavior of a profile switch on login.
func (l *Loader) WriteCredentials(profile string, values map[string]string) error {
	cfg, err := l.open()
	if err != nil {
		return err
	}
	cfg.Section(ini.DefaultSection).Key(currentProfileKey).SetValue(profile)
	section := cfg.Section(profile)
	for k, v := range values {
		section.Key(k).SetValue(v)
	}
	return l.save(cfg)
}

// SetCurrentProfile rewrites the file with a new current_profile pointer.
func (l *Loader) SetCurrentProfile(profile string) error {
	cfg, err := l.open()
	if err != nil {
		return err
	}
	cfg.Section(ini.DefaultSection).Key(currentProfileKey).SetValue(profile)
	return l.save(cfg)
}

// Profiles lists the named profile sections in the file.
func (l *Loader) Profiles() ([]string, error) {
	cfg, err := l.open()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, s := range cfg.Sections() {
		if s.Name() == ini.DefaultSection {
			continue
		}
		names = append(names, s.Name())
	}
	return names, nil
}

func (l *Loader) open() (*ini.File, error) {
	// LooseLoad tolerates a missing file so first-run works without setup
	cfg, err := ini.LooseLoad(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", l.path, err)
	}
	return cfg, nil
}

func (l *Loader) save(cfg *ini.File) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	// Write with secure permissions
	if err := os.WriteFile(l.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
