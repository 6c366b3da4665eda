package envelope

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/illarion/darkcrypt/internal/crypto"
)

// Iterations is the PBKDF2 iteration count of the v1 format. It is not
// carried in the payload, so changing it breaks every existing payload.
const Iterations = crypto.DefaultIters

// Provider supplies the primitives the codec is built on
type Provider interface {
	Random(n int) ([]byte, error)
	DeriveKey(passphrase, salt []byte, iterations int) ([]byte, error)
	Seal(key, nonce, plaintext []byte) ([]byte, error)
	Open(key, nonce, ciphertext []byte) ([]byte, error)
}

// Codec encrypts and decrypts v1 envelopes. It holds no mutable state and
// is safe for concurrent use.
type Codec struct {
	provider Provider
}

// New checks that the provider works and returns a ready codec.
// It fails with ErrCryptoUnavailable otherwise.
func New(provider Provider) (*Codec, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: no provider", ErrCryptoUnavailable)
	}
	if err := selfCheck(provider); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return &Codec{provider: provider}, nil
}

// NewDefault returns a codec backed by crypto/rand and the standard library ciphers
func NewDefault() (*Codec, error) {
	return New(crypto.NewProvider())
}

// selfCheck exercises every primitive once with throwaway inputs
func selfCheck(p Provider) error {
	if _, err := p.Random(1); err != nil {
		return fmt.Errorf("random source: %w", err)
	}

	key, err := p.DeriveKey([]byte("self-check"), make([]byte, crypto.SaltSize), 1)
	if err != nil {
		return fmt.Errorf("key derivation: %w", err)
	}
	defer crypto.ClearBytes(key)

	nonce := make([]byte, crypto.NonceSize)
	msg := []byte("self-check")
	ct, err := p.Seal(key, nonce, msg)
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	pt, err := p.Open(key, nonce, ct)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if !bytes.Equal(pt, msg) {
		return fmt.Errorf("open returned wrong plaintext")
	}
	return nil
}

// Encrypt seals plaintext under a key derived from passphrase and returns
// the payload string.
func (c *Codec) Encrypt(plaintext, passphrase string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	if !utf8.ValidString(plaintext) {
		return "", ErrInvalidText
	}

	salt, err := c.provider.Random(crypto.SaltSize)
	if err != nil {
		return "", err
	}
	iv, err := c.provider.Random(crypto.NonceSize)
	if err != nil {
		return "", err
	}

	key, err := c.deriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)

	pt := []byte(plaintext)
	defer crypto.ClearBytes(pt)

	ct, err := c.provider.Seal(key, iv, pt)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}

	return Payload{
		Version:    Version1,
		Salt:       salt,
		IV:         iv,
		Ciphertext: ct,
	}.String(), nil
}

// Decrypt opens a payload produced by Encrypt. A wrong passphrase and a
// tampered payload both yield ErrDecryptionFailed.
func (c *Codec) Decrypt(payload, passphrase string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}

	p, err := ParsePayload(payload)
	if err != nil {
		return "", err
	}

	key, err := c.deriveKey(passphrase, p.Salt)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	defer crypto.ClearBytes(key)

	pt, err := c.provider.Open(key, p.IV, p.Ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	defer crypto.ClearBytes(pt)

	if !utf8.Valid(pt) {
		return "", ErrDecodingFailed
	}

	return string(pt), nil
}

func (c *Codec) deriveKey(passphrase string, salt []byte) ([]byte, error) {
	pass := []byte(passphrase)
	defer crypto.ClearBytes(pass)

	key, err := c.provider.DeriveKey(pass, salt, Iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
