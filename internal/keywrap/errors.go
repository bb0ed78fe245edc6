package keywrap

import "errors"

// BadPassphraseError indicates the secretbox failed to authenticate. A wrong
// passphrase and a corrupted blob are deliberately indistinguishable.
type BadPassphraseError struct{}

func (e *BadPassphraseError) Error() string {
	return "wrong passphrase (or corrupted key file)"
}

// IsBadPassphrase reports whether err indicates an authentication failure.
func IsBadPassphrase(err error) bool {
	var bp *BadPassphraseError
	return errors.As(err, &bp)
}

// MalformedError indicates a wrapped blob or seed of the wrong shape.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string { return e.Reason }

// IsMalformed reports whether err indicates a malformed blob.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}
