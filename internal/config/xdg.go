package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// ConfigDir returns the XDG-compliant config directory for myd
// Typically ~/.config/myd/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "myd")
}

// CredentialsPath returns the full path to the credentials/profile file
func CredentialsPath() string {
	return filepath.Join(ConfigDir(), "credentials.ini")
}

// CacheDir returns the XDG-compliant cache directory for myd
// Typically ~/.cache/myd/ on Linux (refresh lock file lives here)
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "myd")
}
