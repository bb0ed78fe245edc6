package engine

import (
	"errors"
	"fmt"
)

// BadSignatureError indicates the Ed25519 check failed: the file, the
// record, or both have been altered since signing.
type BadSignatureError struct {
	Path string
}

func (e *BadSignatureError) Error() string {
	return fmt.Sprintf("BAD signature for %s", e.Path)
}

// IsBadSignature reports whether err indicates a failed signature check.
func IsBadSignature(err error) bool {
	var bs *BadSignatureError
	return errors.As(err, &bs)
}

// NoDataError indicates verification was requested but neither the file nor
// embedded data is available.
type NoDataError struct {
	Path string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s does not exist and the signature embeds no data", e.Path)
}

// IsNoData reports whether err indicates missing verification input.
func IsNoData(err error) bool {
	var nd *NoDataError
	return errors.As(err, &nd)
}
