package codec

import (
	"errors"
	"fmt"
)

// BadEncodingError indicates malformed Base32/Base64 input.
type BadEncodingError struct {
	Input  string
	Reason string
	Err    error
}

func (e *BadEncodingError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("bad encoding: %s", e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("bad encoding: %v", e.Err)
	default:
		return "bad encoding"
	}
}

func (e *BadEncodingError) Unwrap() error { return e.Err }

// IsBadEncoding reports whether err indicates malformed encoded input.
func IsBadEncoding(err error) bool {
	var be *BadEncodingError
	return errors.As(err, &be)
}

// BadChecksumError indicates the CRC-16 of a decoded key did not match.
type BadChecksumError struct {
	Input string
}

func (e *BadChecksumError) Error() string {
	return "bad key checksum (typo in the key string?)"
}

// IsBadChecksum reports whether err indicates a CRC mismatch.
func IsBadChecksum(err error) bool {
	var bc *BadChecksumError
	return errors.As(err, &bc)
}
