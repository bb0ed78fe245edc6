// Package sigrecord builds and parses signature records and constructs the
// canonical input that Ed25519 actually signs.
//
// The signed message is a SHA-512 digest fed in a fixed order: the file
// bytes, then the comment (if any), then the decimal datetime, then the file
// bytes for embedded signatures (which then have no leading file chunk).
// Every chunk except the leading file bytes is preceded by the separator
// "\0x00", the literal five ASCII characters, not a NUL byte. The quirk is part of the wire format; every existing signature
// depends on it.
package sigrecord

import (
	"bufio"
	"bytes"
	"crypto/sha512"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// sep is five ASCII characters: backslash, zero, x, zero, zero.
const sep = `\0x00`

// Record is a parsed signature payload. Data is the Base64 form of the
// signed file bytes and is present only for embedded signatures.
type Record struct {
	Comment   string `yaml:"comment,omitempty"`
	Datetime  int64  `yaml:"datetime"`
	VerifyKey string `yaml:"verifykey"`
	Data      string `yaml:"data,omitempty"`
	Signature string `yaml:"signature"`
}

// Embedded reports whether the record carries the signed bytes inline.
func (r *Record) Embedded() bool { return r.Data != "" }

// Digest computes the canonical 64-byte signature input. For a detached
// signature, file streams the signed content and embedded is nil. For an
// embedded signature, file is nil and embedded holds the content (which is
// then fed after the datetime, not before the comment).
//
// The same order is used for signing and verification.
func Digest(file io.Reader, comment string, datetime int64, embedded []byte) ([]byte, error) {
	h := sha512.New()

	if file != nil {
		if _, err := io.Copy(h, file); err != nil {
			return nil, err
		}
	}
	if comment != "" {
		io.WriteString(h, sep)
		io.WriteString(h, comment)
	}
	io.WriteString(h, sep)
	io.WriteString(h, strconv.FormatInt(datetime, 10))
	if embedded != nil {
		io.WriteString(h, sep)
		h.Write(embedded)
	}

	return h.Sum(nil), nil
}

// DigestBytes computes the SHA-512 digest of exact bytes, with no framing.
// The trust list's signature is computed over this.
func DigestBytes(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}

// Marshal serializes the record with a leading human-readable banner.
func (r *Record) Marshal(banner []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, line := range banner {
		buf.WriteString("# ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	body, err := yaml.Marshal(r)
	if err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// Parse reads a signature record, skipping any leading comment lines.
// Unknown fields are rejected.
func Parse(data []byte) (*Record, error) {
	body, err := stripBanner(data)
	if err != nil {
		return nil, err
	}

	var rec Record
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		return nil, &MalformedError{Reason: "not a valid signature record"}
	}

	if rec.Signature == "" {
		return nil, &MalformedError{Reason: "missing signature"}
	}
	if rec.VerifyKey == "" {
		return nil, &MalformedError{Reason: "missing verifykey"}
	}
	if rec.Datetime <= 0 {
		return nil, &MalformedError{Reason: "missing datetime"}
	}

	return &rec, nil
}

// stripBanner drops leading '#' comment lines and blank lines.
func stripBanner(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	inBanner := true

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	for sc.Scan() {
		line := sc.Text()
		if inBanner {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			inBanner = false
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
