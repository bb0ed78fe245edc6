// Package truststore maintains the local list of trusted verify keys.
//
// The list lives in .songe.trust: one encoded key per line, LF-terminated,
// sorted ascending, deduplicated. Its integrity is protected by a sibling
// .songe.trust.sgsig record holding an Ed25519 signature over the exact file
// bytes, made with the local signing key. Every mutation rewrites both
// files; both writes go through a temp file and rename.
package truststore

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/d2verb/songe/internal/codec"
	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/sigrecord"
	"gopkg.in/yaml.v3"
)

// sigRecord is the signature sibling: a single-field YAML record.
type sigRecord struct {
	Signature string `yaml:"signature"`
}

// indexPattern matches selectors treated as 1-based list indexes.
var indexPattern = regexp.MustCompile(`^[0-9]{1,4}$`)

// Store manages the trust list of one project directory.
type Store struct {
	cfg config.Config
	dir string
}

// NewStore creates a trust store rooted at dir.
func NewStore(cfg config.Config, dir string) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{cfg: cfg, dir: dir}
}

// Path is the trust list location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.cfg.TrustFileName)
}

// SigPath is the signature sibling location.
func (s *Store) SigPath() string {
	return filepath.Join(s.dir, s.cfg.TrustSigName())
}

// Load reads the trust list and verifies its signature against verifyKey.
// A missing trust file yields an empty list. A present list with a missing
// signature sibling is returned together with UnsignedError so the caller
// can warn and proceed. A signature that fails to verify is fatal.
func (s *Store) Load(verifyKey ed25519.PublicKey) ([]string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	keys := normalize(parseLines(data))

	sigData, err := os.ReadFile(s.SigPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keys, &UnsignedError{Path: s.Path()}
		}
		return nil, err
	}

	var rec sigRecord
	if err := yaml.Unmarshal(sigData, &rec); err != nil || rec.Signature == "" {
		return nil, &BadSignatureError{Path: s.Path()}
	}
	sig, err := codec.DecodeBytes(rec.Signature)
	if err != nil {
		return nil, &BadSignatureError{Path: s.Path()}
	}

	// The signature covers the exact file bytes, trailing LF included.
	if !ed25519.Verify(verifyKey, sigrecord.DigestBytes(data), sig) {
		return nil, &BadSignatureError{Path: s.Path()}
	}

	return keys, nil
}

// Save normalizes the list, writes it, signs the exact written bytes with
// signingKey, and writes the signature sibling.
func (s *Store) Save(keys []string, signingKey ed25519.PrivateKey) error {
	keys = normalize(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte('\n')
	}
	data := buf.Bytes()

	sig := ed25519.Sign(signingKey, sigrecord.DigestBytes(data))
	sigData, err := yaml.Marshal(&sigRecord{Signature: codec.EncodeBytes(sig)})
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.Path(), data, 0644); err != nil {
		return err
	}
	return writeFileAtomic(s.SigPath(), sigData, 0644)
}

// Add inserts a key and re-signs the list. Adding a key that is already
// present rewrites the same list.
func (s *Store) Add(key string, verifyKey ed25519.PublicKey, signingKey ed25519.PrivateKey) error {
	keys, err := s.Load(verifyKey)
	if err != nil && !IsUnsigned(err) {
		return err
	}
	return s.Save(append(keys, key), signingKey)
}

// Remove deletes a key by literal value or by 1-based index (selectors of
// one to four decimal digits are indexes). Removing an absent key is a
// no-op. The returned string is the removed key, empty if nothing matched.
func (s *Store) Remove(selector string, verifyKey ed25519.PublicKey, signingKey ed25519.PrivateKey) (string, error) {
	keys, err := s.Load(verifyKey)
	if err != nil && !IsUnsigned(err) {
		return "", err
	}

	removed := ""
	if indexPattern.MatchString(selector) {
		idx, _ := strconv.Atoi(selector)
		if idx >= 1 && idx <= len(keys) {
			removed = keys[idx-1]
			keys = append(keys[:idx-1], keys[idx:]...)
		}
	} else {
		for i, k := range keys {
			if k == selector {
				removed = k
				keys = append(keys[:i], keys[i+1:]...)
				break
			}
		}
	}

	if removed == "" {
		return "", nil
	}
	return removed, s.Save(keys, signingKey)
}

// Match is one trust-list entry containing a searched substring.
type Match struct {
	Index int // 1-based position in the sorted list
	Key   string
	Start int // substring span within Key
	End   int
}

// Find returns all entries containing substring. An empty substring matches
// every entry.
func Find(keys []string, substring string) []Match {
	var matches []Match
	for i, k := range keys {
		pos := strings.Index(k, substring)
		if pos < 0 {
			continue
		}
		matches = append(matches, Match{
			Index: i + 1,
			Key:   k,
			Start: pos,
			End:   pos + len(substring),
		})
	}
	return matches
}

// parseLines splits the trust file into entries, dropping blank lines.
func parseLines(data []byte) []string {
	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			keys = append(keys, line)
		}
	}
	return keys
}

// normalize sorts ascending and deduplicates.
func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
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
