// Package config holds songe's fixed file-layout configuration.
package config

import (
	"os"
	"path/filepath"
)

// Config names the files and environment variables songe works with. It is
// an immutable record handed to component constructors; there is no mutable
// package state.
type Config struct {
	KeyFileName   string // encrypted key pair, one per project or user
	TrustFileName string // list of trusted verify keys
	SigExt        string // extension appended to signed files
	EnvHome       string // environment variable naming a shared key directory
}

// Default returns the standard songe file layout.
func Default() Config {
	return Config{
		KeyFileName:   ".songe.key",
		TrustFileName: ".songe.trust",
		SigExt:        ".sgsig",
		EnvHome:       "SONGE_HOME",
	}
}

// TrustSigName is the name of the trust list's signature sibling.
func (c Config) TrustSigName() string {
	return c.TrustFileName + c.SigExt
}

// SigPath is the signature file path for a signed file.
func (c Config) SigPath(file string) string {
	return file + c.SigExt
}

// LogPath returns the audit log location (~/.songe/logs/songe.log).
func LogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".songe", "logs", "songe.log"), nil
}
