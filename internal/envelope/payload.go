package envelope

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/illarion/darkcrypt/internal/crypto"
)

const (
	Version1  = "v1"
	separator = "."
	numFields = 4
)

// Strict rejects non-zero trailing bits, so each payload has one encoding
var b64 = base64.RawURLEncoding.Strict()

// Payload is the decoded form of an envelope string
type Payload struct {
	Version    string
	Salt       []byte
	IV         []byte
	Ciphertext []byte // includes the GCM tag
}

// String serializes the payload to its wire form
func (p Payload) String() string {
	return strings.Join([]string{
		p.Version,
		b64.EncodeToString(p.Salt),
		b64.EncodeToString(p.IV),
		b64.EncodeToString(p.Ciphertext),
	}, separator)
}

// ParsePayload splits and decodes an envelope string. It checks structure
// only; authenticity is established by Decrypt.
func ParsePayload(s string) (Payload, error) {
	parts := strings.Split(s, separator)
	if len(parts) != numFields {
		return Payload{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedPayload, numFields, len(parts))
	}

	if parts[0] != Version1 {
		return Payload{}, fmt.Errorf("%w %q", ErrUnsupportedVersion, parts[0])
	}

	salt, err := decodeField(parts[1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: salt: %v", ErrMalformedPayload, err)
	}
	if len(salt) != crypto.SaltSize {
		return Payload{}, fmt.Errorf("%w: salt is %d bytes, want %d", ErrMalformedPayload, len(salt), crypto.SaltSize)
	}

	iv, err := decodeField(parts[2])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: iv: %v", ErrMalformedPayload, err)
	}
	if len(iv) != crypto.NonceSize {
		return Payload{}, fmt.Errorf("%w: iv is %d bytes, want %d", ErrMalformedPayload, len(iv), crypto.NonceSize)
	}

	ct, err := decodeField(parts[3])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: ciphertext: %v", ErrMalformedPayload, err)
	}

	return Payload{
		Version:    parts[0],
		Salt:       salt,
		IV:         iv,
		Ciphertext: ct,
	}, nil
}

// decodeField accepts padded input too, some tools re-encode with padding
func decodeField(s string) ([]byte, error) {
	return b64.DecodeString(strings.TrimRight(s, "="))
}
