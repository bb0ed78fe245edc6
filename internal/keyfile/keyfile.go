// Package keyfile locates, reads, and writes the .songe.key file.
//
// The key file is a small YAML record with two fields: the declared verify
// key (stored in its signing-tag K… form, byte-for-byte compatible with
// existing key files) and the passphrase-wrapped signing key as Base64.
// It is always written with owner-only permissions.
package keyfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/d2verb/songe/internal/codec"
	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/pathutil"
	"gopkg.in/yaml.v3"
)

// record is the on-disk shape of the key file.
type record struct {
	VerifyKey  string `yaml:"verifykey"`
	SigningKey string `yaml:"signingkey"`
}

// Store resolves and persists the key file for one project directory.
type Store struct {
	cfg config.Config
	dir string // project directory; "." for the working directory
}

// NewStore creates a key-file store rooted at dir.
func NewStore(cfg config.Config, dir string) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{cfg: cfg, dir: dir}
}

// Resolve returns the key file path for read operations, in order of
// preference: the project-local file, the directory named by SONGE_HOME,
// then the user's home directory. If none of those exist the project-local
// path is returned along with a NotFoundError.
func (s *Store) Resolve() (string, error) {
	local := filepath.Join(s.dir, s.cfg.KeyFileName)
	if fileExists(local) {
		return local, nil
	}

	if env := os.Getenv(s.cfg.EnvHome); env != "" {
		resolved, err := pathutil.ResolvePath(env, s.dir)
		if err == nil && pathutil.IsDir(resolved) {
			return filepath.Join(resolved, s.cfg.KeyFileName), nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, s.cfg.KeyFileName)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return local, &NotFoundError{Path: local}
}

// WritePath returns the path new key material is written to. Write
// operations always target the project-local file unless SONGE_HOME points
// at an existing directory.
func (s *Store) WritePath() string {
	if env := os.Getenv(s.cfg.EnvHome); env != "" {
		resolved, err := pathutil.ResolvePath(env, s.dir)
		if err == nil && pathutil.IsDir(resolved) {
			return filepath.Join(resolved, s.cfg.KeyFileName)
		}
	}
	return filepath.Join(s.dir, s.cfg.KeyFileName)
}

// Load reads the key file and returns the wrapped signing key bytes and the
// declared raw verify key. Callers unwrapping the signing key MUST check
// that the derived verify key equals the declared one.
func (s *Store) Load() (wrapped, verifyKey []byte, err error) {
	path, err := s.Resolve()
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &NotFoundError{Path: path}
		}
		return nil, nil, err
	}

	var rec record
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		return nil, nil, &BadKeyfileError{Path: path, Reason: "not a valid key file"}
	}
	if rec.VerifyKey == "" || rec.SigningKey == "" {
		return nil, nil, &BadKeyfileError{Path: path, Reason: "missing verifykey or signingkey"}
	}

	// The reference stores the verify key in its K-tagged form.
	raw, tag, err := codec.DecodeKey(rec.VerifyKey)
	if err != nil {
		return nil, nil, &BadKeyfileError{Path: path, Reason: "undecodable verifykey"}
	}
	if tag != codec.TagSigning {
		return nil, nil, &BadKeyfileError{Path: path, Reason: "unexpected verifykey tag"}
	}

	wrapped, err = codec.DecodeBytes(rec.SigningKey)
	if err != nil {
		return nil, nil, &BadKeyfileError{Path: path, Reason: "undecodable signingkey"}
	}

	return wrapped, raw, nil
}

// Store writes the key file with owner-only permissions. Any trust-list
// signature in the same directory is deleted: the list is signed by the old
// identity and a stale signature would be misleading until re-signed.
func (s *Store) Store(wrapped, verifyKey []byte) error {
	encodedVerify, err := codec.EncodeSigningKey(verifyKey)
	if err != nil {
		return err
	}

	rec := record{
		VerifyKey:  encodedVerify,
		SigningKey: codec.EncodeBytes(wrapped),
	}
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return err
	}

	path := s.WritePath()
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return err
	}

	sigPath := filepath.Join(filepath.Dir(path), s.cfg.TrustSigName())
	if err := os.Remove(sigPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// writeFileAtomic writes through a temp file and renames, so a crash leaves
// either the old file or the new one, never a torn write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
