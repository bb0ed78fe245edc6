// Package codec implements the textual encodings songe uses for keys and
// opaque byte blobs.
//
// Keys are rendered as Base32 strings carrying a type tag and a CRC-16
// checksum: Base32( tag || raw32 || crc16 ). The tag byte is chosen so that
// the encoded string starts with a recognizable letter: 0x78 makes a verify
// key start with 'P', 0x50 makes a signing key start with 'K'. The CRC is a
// typo-detection aid for humans copying keys around, not a cryptographic
// check.
package codec

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/sigurn/crc16"
)

const (
	// TagVerify prefixes an encoded verify key ('P' in Base32).
	TagVerify byte = 0x78
	// TagSigning prefixes an encoded signing key ('K' in Base32).
	TagSigning byte = 0x50

	// RawKeySize is the size of a raw Ed25519 seed or public key.
	RawKeySize = 32

	// EncodedKeySize is the length of an encoded key string:
	// 35 bytes (tag + 32 key + 2 CRC) is exactly 56 Base32 characters.
	EncodedKeySize = 56
)

// The tag bytes above are only meaningful with this alphabet. Changing the
// encoding would require re-deriving them.
var keyEncoding = base32.StdEncoding

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// EncodeBytes encodes an opaque byte blob as strict standard Base64.
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBytes decodes a strict standard Base64 string.
func DecodeBytes(s string) ([]byte, error) {
	// The stdlib decoder skips CR and LF even in strict mode.
	if strings.ContainsAny(s, "\r\n") {
		return nil, &BadEncodingError{Input: s, Reason: "line breaks are not allowed"}
	}
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, &BadEncodingError{Input: s, Err: err}
	}
	return b, nil
}

// EncodeVerifyKey encodes a raw 32-byte verify key. The result starts with 'P'.
func EncodeVerifyKey(raw []byte) (string, error) {
	return encodeKey(TagVerify, raw)
}

// EncodeSigningKey encodes a raw 32-byte signing key. The result starts with 'K'.
func EncodeSigningKey(raw []byte) (string, error) {
	return encodeKey(TagSigning, raw)
}

func encodeKey(tag byte, raw []byte) (string, error) {
	if len(raw) != RawKeySize {
		return "", &BadEncodingError{Reason: "raw key must be 32 bytes"}
	}

	body := make([]byte, 0, RawKeySize+3)
	body = append(body, tag)
	body = append(body, raw...)

	// CRC-16/ARC is a reflected CRC; the two checksum bytes are appended
	// little-endian.
	sum := crc16.Checksum(body, crcTable)
	body = binary.LittleEndian.AppendUint16(body, sum)

	return keyEncoding.EncodeToString(body), nil
}

// DecodeKey decodes an encoded key string and returns the raw 32 key bytes
// along with the tag byte. Callers should check the tag against TagVerify or
// TagSigning and reject unknown ones.
func DecodeKey(s string) ([]byte, byte, error) {
	body, err := keyEncoding.DecodeString(s)
	if err != nil {
		return nil, 0, &BadEncodingError{Input: s, Err: err}
	}
	if len(body) != RawKeySize+3 {
		return nil, 0, &BadEncodingError{Input: s, Reason: "wrong decoded length"}
	}

	payload, crc := body[:RawKeySize+1], body[RawKeySize+1:]
	want := binary.LittleEndian.Uint16(crc)
	if got := crc16.Checksum(payload, crcTable); got != want {
		return nil, 0, &BadChecksumError{Input: s}
	}

	return payload[1:], payload[0], nil
}
