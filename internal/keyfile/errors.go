package keyfile

import (
	"errors"
	"fmt"
)

// NotFoundError indicates no key file exists at any resolved location.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no key file found (looked for %s); run 'songe generate' first", e.Path)
}

// IsNotFound reports whether err indicates a missing key file.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// BadKeyfileError indicates a malformed key file, or a verify-key mismatch
// detected after unwrapping the signing key.
type BadKeyfileError struct {
	Path   string
	Reason string
}

func (e *BadKeyfileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("bad key file: %s", e.Reason)
	}
	return fmt.Sprintf("bad key file %s: %s", e.Path, e.Reason)
}

// IsBadKeyfile reports whether err indicates a malformed key file.
func IsBadKeyfile(err error) bool {
	var bk *BadKeyfileError
	return errors.As(err, &bk)
}
