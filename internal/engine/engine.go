// Package engine exposes songe's operations (key management, signing,
// verification, trust-list maintenance) behind one facade the CLI binaries
// call. It never prompts or logs; the passphrase comes in through a
// callback and diagnostics go to writers supplied by the caller.
package engine

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/d2verb/songe/internal/codec"
	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/keyfile"
	"github.com/d2verb/songe/internal/keywrap"
	"github.com/d2verb/songe/internal/sigrecord"
	"github.com/d2verb/songe/internal/truststore"
)

// PassphraseFunc obtains the passphrase from the user. When confirm is set
// the collaborator should ask twice and fail on mismatch.
type PassphraseFunc func(prompt string, confirm bool) ([]byte, error)

// Verdict is the outcome of a successful verification. A bad signature is
// never a verdict but an error, so no caller can mistake a forged file for
// a valid one.
type Verdict int

const (
	// The zero value is deliberately no verdict at all; error paths return
	// it, and a caller that forgets the error check matches neither case.
	verdictNone Verdict = iota
	// GoodTrusted: signature valid, signer in the trust list.
	GoodTrusted
	// GoodUntrusted: signature valid, signer unknown.
	GoodUntrusted
)

// Engine wires the key file, trust store, and codec together for one
// project directory.
type Engine struct {
	cfg        config.Config
	dir        string
	keys       *keyfile.Store
	trust      *truststore.Store
	passphrase PassphraseFunc
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithPassphraseFunc sets the passphrase collaborator. Engines without one
// can only perform operations that need no signing key.
func WithPassphraseFunc(fn PassphraseFunc) Option {
	return func(e *Engine) { e.passphrase = fn }
}

// WithClock overrides the signing timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine rooted at dir ("." for the working directory).
func New(cfg config.Config, dir string, opts ...Option) *Engine {
	if dir == "" {
		dir = "."
	}
	e := &Engine{
		cfg:   cfg,
		dir:   dir,
		keys:  keyfile.NewStore(cfg, dir),
		trust: truststore.NewStore(cfg, dir),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KeyFilePath returns the resolved key file location, for display.
func (e *Engine) KeyFilePath() (string, error) {
	return e.keys.Resolve()
}

// Generate creates a fresh key pair, wraps the seed under a passphrase, and
// stores the key file. It returns the encoded verify key for sharing.
func (e *Engine) Generate() (string, error) {
	seed := make([]byte, keywrap.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	defer keywrap.Zero(seed)

	return e.storeSeed(seed)
}

// Import accepts a pasted K… signing key, derives the pair, and stores it
// wrapped under a fresh passphrase.
func (e *Engine) Import(encoded string) (string, error) {
	seed, tag, err := codec.DecodeKey(encoded)
	if err != nil {
		return "", err
	}
	defer keywrap.Zero(seed)
	if tag != codec.TagSigning {
		return "", &codec.BadEncodingError{Reason: "not a signing key (expected a K… string)"}
	}

	return e.storeSeed(seed)
}

func (e *Engine) storeSeed(seed []byte) (string, error) {
	passphrase, err := e.askPassphrase("Passphrase for the new key", true)
	if err != nil {
		return "", err
	}
	defer keywrap.Zero(passphrase)

	wrapped, err := keywrap.Wrap(seed, passphrase)
	if err != nil {
		return "", err
	}

	priv := ed25519.NewKeyFromSeed(seed)
	defer keywrap.Zero(priv)
	pub := priv.Public().(ed25519.PublicKey)

	if err := e.keys.Store(wrapped, pub); err != nil {
		return "", err
	}
	return codec.EncodeVerifyKey(pub)
}

// ChangePassphrase unwraps the signing key under the old passphrase and
// rewraps it under a new one. The verify key is unchanged; the trust-list
// signature is invalidated by the key-file rewrite all the same.
func (e *Engine) ChangePassphrase() error {
	priv, err := e.unlock("Current passphrase")
	if err != nil {
		return err
	}
	defer keywrap.Zero(priv)

	passphrase, err := e.askPassphrase("New passphrase", true)
	if err != nil {
		return err
	}
	defer keywrap.Zero(passphrase)

	seed := priv.Seed()
	defer keywrap.Zero(seed)
	wrapped, err := keywrap.Wrap(seed, passphrase)
	if err != nil {
		return err
	}

	return e.keys.Store(wrapped, priv.Public().(ed25519.PublicKey))
}

// VerifyKeyString returns the declared verify key in its shareable P… form.
// No passphrase is needed.
func (e *Engine) VerifyKeyString() (string, error) {
	_, verifyKey, err := e.keys.Load()
	if err != nil {
		return "", err
	}
	return codec.EncodeVerifyKey(verifyKey)
}

// SigningKeyString unwraps the signing key and returns its K… form for
// transfer to another machine.
func (e *Engine) SigningKeyString() (string, error) {
	priv, err := e.unlock("Passphrase")
	if err != nil {
		return "", err
	}
	defer keywrap.Zero(priv)

	seed := priv.Seed()
	defer keywrap.Zero(seed)
	return codec.EncodeSigningKey(seed)
}

// unlock loads the key file, asks for the passphrase, unwraps the seed, and
// checks the derived verify key against the declared one. A mismatch means
// the key file was tampered with behind the ciphertext's back.
func (e *Engine) unlock(prompt string) (ed25519.PrivateKey, error) {
	wrapped, declared, err := e.keys.Load()
	if err != nil {
		return nil, err
	}

	passphrase, err := e.askPassphrase(prompt, false)
	if err != nil {
		return nil, err
	}
	defer keywrap.Zero(passphrase)

	seed, err := keywrap.Unwrap(wrapped, passphrase)
	if err != nil {
		if keywrap.IsMalformed(err) {
			return nil, &keyfile.BadKeyfileError{Reason: err.Error()}
		}
		return nil, err
	}
	defer keywrap.Zero(seed)

	priv := ed25519.NewKeyFromSeed(seed)
	derived := priv.Public().(ed25519.PublicKey)
	if subtle.ConstantTimeCompare(derived, declared) != 1 {
		keywrap.Zero(priv)
		return nil, &keyfile.BadKeyfileError{Reason: "verify key does not match the signing key"}
	}
	return priv, nil
}

func (e *Engine) askPassphrase(prompt string, confirm bool) ([]byte, error) {
	if e.passphrase == nil {
		return nil, errors.New("no passphrase source configured")
	}
	return e.passphrase(prompt, confirm)
}

// Sign signs path and writes the signature record next to it. With embedded
// set, the file bytes travel inside the record and verification no longer
// needs the original file.
func (e *Engine) Sign(path, comment string, embedded bool) (string, error) {
	priv, err := e.unlock("Passphrase")
	if err != nil {
		return "", err
	}
	defer keywrap.Zero(priv)

	datetime := e.now().Unix()

	rec := &sigrecord.Record{
		Comment:  comment,
		Datetime: datetime,
	}
	rec.VerifyKey, err = codec.EncodeVerifyKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return "", err
	}

	var digest []byte
	if embedded {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		digest, err = sigrecord.Digest(nil, comment, datetime, content)
		if err != nil {
			return "", err
		}
		rec.Data = codec.EncodeBytes(content)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		digest, err = sigrecord.Digest(f, comment, datetime, nil)
		f.Close()
		if err != nil {
			return "", err
		}
	}

	rec.Signature = codec.EncodeBytes(ed25519.Sign(priv, digest))

	banner := []string{
		"signature file created by songe",
		fmt.Sprintf("verify with: songe verify %s", filepath.Base(path)),
	}
	data, err := rec.Marshal(banner)
	if err != nil {
		return "", err
	}

	sigPath := e.cfg.SigPath(path)
	if err := os.WriteFile(sigPath, data, 0644); err != nil {
		return "", err
	}
	return sigPath, nil
}

// Verify checks the signature record for path.
//
// If path is missing and the record embeds the signed bytes, verification
// runs against those and, once the signature checks out, the recovered
// bytes are written to dataOut. Diagnostics go to warnOut. A signature that
// does not verify is returned as BadSignatureError, never as a verdict.
func (e *Engine) Verify(path string, dataOut, warnOut io.Writer) (Verdict, error) {
	if dataOut == nil {
		dataOut = io.Discard
	}
	if warnOut == nil {
		warnOut = io.Discard
	}

	data, err := os.ReadFile(e.cfg.SigPath(path))
	if err != nil {
		return 0, err
	}
	rec, err := sigrecord.Parse(data)
	if err != nil {
		return 0, err
	}

	signerRaw, tag, err := codec.DecodeKey(rec.VerifyKey)
	if err != nil {
		return 0, err
	}
	if tag != codec.TagVerify {
		return 0, &sigrecord.MalformedError{Reason: "record verifykey is not a verify key"}
	}
	signer := ed25519.PublicKey(signerRaw)

	var digest []byte
	var recovered []byte

	fileExists := true
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fileExists = false
	}

	switch {
	case fileExists:
		if rec.Embedded() {
			fmt.Fprintf(warnOut, "warning: %s exists, ignoring data embedded in the signature\n", path)
			// An embedded signature covers the bytes in the embedded
			// position, so the on-disk content is fed there instead.
			content, err := os.ReadFile(path)
			if err != nil {
				return 0, err
			}
			digest, err = sigrecord.Digest(nil, rec.Comment, rec.Datetime, content)
			if err != nil {
				return 0, err
			}
			break
		}
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		digest, err = sigrecord.Digest(f, rec.Comment, rec.Datetime, nil)
		f.Close()
		if err != nil {
			return 0, err
		}

	case rec.Embedded():
		recovered, err = codec.DecodeBytes(rec.Data)
		if err != nil {
			return 0, err
		}
		digest, err = sigrecord.Digest(nil, rec.Comment, rec.Datetime, recovered)
		if err != nil {
			return 0, err
		}

	default:
		return 0, &NoDataError{Path: path}
	}

	if !ed25519.Verify(signer, digest, codecMustDecode(rec.Signature)) {
		return 0, &BadSignatureError{Path: path}
	}

	if recovered != nil {
		if _, err := dataOut.Write(recovered); err != nil {
			return 0, err
		}
	}

	trusted, err := e.isTrusted(rec.VerifyKey, warnOut)
	if err != nil {
		return 0, err
	}
	if trusted {
		return GoodTrusted, nil
	}
	return GoodUntrusted, nil
}

// codecMustDecode decodes a Base64 field, mapping garbage to nil so the
// Ed25519 check fails instead of panicking.
func codecMustDecode(s string) []byte {
	b, err := codec.DecodeBytes(s)
	if err != nil {
		return nil
	}
	return b
}

// isTrusted looks the signer up in the local trust list. Without a local
// key the list cannot be authenticated; it is still consulted, with a
// warning.
func (e *Engine) isTrusted(encodedKey string, warnOut io.Writer) (bool, error) {
	var keys []string

	_, localVerify, err := e.keys.Load()
	switch {
	case err == nil:
		keys, err = e.trust.Load(ed25519.PublicKey(localVerify))
		if err != nil {
			if !truststore.IsUnsigned(err) {
				return false, err
			}
			fmt.Fprintf(warnOut, "warning: %v\n", err)
		}
	case keyfile.IsNotFound(err):
		keys, err = e.trust.LoadUnverified()
		if err != nil && !truststore.IsUnsigned(err) {
			return false, err
		}
		if err != nil {
			fmt.Fprintf(warnOut, "warning: no local key, trust list taken at face value\n")
		}
	default:
		return false, err
	}

	for _, k := range keys {
		if k == encodedKey {
			return true, nil
		}
	}
	return false, nil
}

// TrustList returns the trust-list entries containing substring (all of
// them for an empty substring). The returned warning is non-nil when the
// list could not be authenticated; the caller decides how loudly to say so.
func (e *Engine) TrustList(substring string) (matches []truststore.Match, warn, err error) {
	var keys []string

	_, localVerify, err := e.keys.Load()
	switch {
	case err == nil:
		keys, err = e.trust.Load(ed25519.PublicKey(localVerify))
	case keyfile.IsNotFound(err):
		keys, err = e.trust.LoadUnverified()
	default:
		return nil, nil, err
	}
	if err != nil {
		if !truststore.IsUnsigned(err) {
			return nil, nil, err
		}
		warn = err
	}

	return truststore.Find(keys, substring), warn, nil
}

// TrustAdd adds an encoded verify key to the trust list and re-signs it.
// The list is strictly verified against the key derived from the freshly
// unwrapped signing key, which guards against a swapped key file.
func (e *Engine) TrustAdd(encoded string) error {
	_, tag, err := codec.DecodeKey(encoded)
	if err != nil {
		return err
	}
	if tag != codec.TagVerify {
		return &codec.BadEncodingError{Reason: "not a verify key (expected a P… string)"}
	}

	priv, err := e.unlock("Passphrase")
	if err != nil {
		return err
	}
	defer keywrap.Zero(priv)

	return e.trust.Add(encoded, priv.Public().(ed25519.PublicKey), priv)
}

// TrustRemove removes a key by literal value or 1-based index. The removed
// key is returned, empty when nothing matched (a no-op, not an error).
func (e *Engine) TrustRemove(selector string) (string, error) {
	priv, err := e.unlock("Passphrase")
	if err != nil {
		return "", err
	}
	defer keywrap.Zero(priv)

	return e.trust.Remove(selector, priv.Public().(ed25519.PublicKey), priv)
}
