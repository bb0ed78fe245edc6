package truststore

import (
	"errors"
	"fmt"
)

// UnsignedError indicates the trust list exists but its signature sibling is
// missing. Callers may warn and use the list anyway.
type UnsignedError struct {
	Path string
}

func (e *UnsignedError) Error() string {
	return fmt.Sprintf("trust file %s is not signed", e.Path)
}

// IsUnsigned reports whether err is the missing-signature warning.
func IsUnsigned(err error) bool {
	var u *UnsignedError
	return errors.As(err, &u)
}

// BadSignatureError indicates the trust list's signature failed to verify;
// the list has been edited without re-signing, or signed by another key.
type BadSignatureError struct {
	Path string
}

func (e *BadSignatureError) Error() string {
	return fmt.Sprintf("trust file %s has a bad signature", e.Path)
}

// IsBadSignature reports whether err indicates a trust-list signature failure.
func IsBadSignature(err error) bool {
	var bs *BadSignatureError
	return errors.As(err, &bs)
}
