package truststore

import (
	"errors"
	"io/fs"
	"os"
)

// LoadUnverified reads the trust list without checking its signature. This
// exists for verify-only contexts with no local key to check against; the
// caller is expected to warn. If the list is present, UnsignedError is
// returned alongside it so the warning surfaces uniformly.
func (s *Store) LoadUnverified() ([]string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return normalize(parseLines(data)), &UnsignedError{Path: s.Path()}
}
