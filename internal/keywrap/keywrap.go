// Package keywrap encrypts the Ed25519 signing seed under a user passphrase.
//
// The wrapped form is salt(16) || nonce(24) || ciphertext(48), 88 bytes
// total. The symmetric key is derived with Argon2id and the seed is sealed
// with XSalsa20-Poly1305 (NaCl secretbox). The KDF parameters are part of
// the wire format: changing them breaks decryption of existing key files.
package keywrap

import (
	"crypto/rand"
	"io"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// SaltSize is the Argon2 salt length.
	SaltSize = 16
	// NonceSize is the secretbox nonce length.
	NonceSize = 24
	// SealedSize is the sealed seed: 32 plaintext + 16 Poly1305 MAC.
	SealedSize = 48
	// WrappedSize is the total wrapped blob length.
	WrappedSize = SaltSize + NonceSize + SealedSize

	// SeedSize is the Ed25519 seed length.
	SeedSize = 32

	argonTime = 5
	// 7,256,678 bytes of Argon2 memory, truncated to KiB the way libsodium
	// truncates its memlimit before invoking Argon2.
	argonMemoryKiB = 7256678 / 1024
	argonThreads   = 1
	argonKeyLen    = 32
)

// Wrap encrypts a 32-byte signing seed under the passphrase.
func Wrap(seed, passphrase []byte) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, &MalformedError{Reason: "seed must be 32 bytes"}
	}

	blob := make([]byte, SaltSize+NonceSize, WrappedSize)
	if _, err := io.ReadFull(rand.Reader, blob); err != nil {
		return nil, err
	}

	var key [32]byte
	deriveKey(&key, passphrase, blob[:SaltSize])
	defer Zero(key[:])

	var nonce [NonceSize]byte
	copy(nonce[:], blob[SaltSize:])

	return secretbox.Seal(blob, seed, &nonce, &key), nil
}

// Unwrap decrypts a wrapped blob with the passphrase and returns the seed.
// An authentication failure (wrong passphrase or tampered ciphertext, the
// two are indistinguishable) yields BadPassphraseError.
func Unwrap(wrapped, passphrase []byte) ([]byte, error) {
	if len(wrapped) != WrappedSize {
		return nil, &MalformedError{Reason: "wrapped key must be 88 bytes"}
	}

	salt := wrapped[:SaltSize]
	var nonce [NonceSize]byte
	copy(nonce[:], wrapped[SaltSize:SaltSize+NonceSize])
	sealed := wrapped[SaltSize+NonceSize:]

	var key [32]byte
	deriveKey(&key, passphrase, salt)
	defer Zero(key[:])

	seed, ok := secretbox.Open(nil, sealed, &nonce, &key)
	if !ok {
		return nil, &BadPassphraseError{}
	}
	return seed, nil
}

func deriveKey(out *[32]byte, passphrase, salt []byte) {
	k := argon2.IDKey(passphrase, salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)
	copy(out[:], k)
	Zero(k)
}

// Zero overwrites b to clear key material from memory. The garbage collector
// gives no timing guarantees, so sensitive buffers are cleared explicitly as
// soon as they are no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
