package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 16     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 150000 // PBKDF2 iterations of the v1 envelope
)

var (
	ErrAuthFailed       = errors.New("authentication failed")
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrInvalidNonceSize = errors.New("invalid nonce size")
)

// Provider implements the primitives the envelope codec needs:
// secure randomness, PBKDF2-HMAC-SHA256 and AES-256-GCM.
type Provider struct {
	rand io.Reader
}

// Option configures a Provider
type Option func(*Provider)

// WithRandom replaces the random source. Only tests should use this.
func WithRandom(r io.Reader) Option {
	return func(p *Provider) {
		p.rand = r
	}
}

// NewProvider creates a provider backed by crypto/rand
func NewProvider(opts ...Option) *Provider {
	p := &Provider{rand: rand.Reader}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Random returns n bytes from the provider's random source
func (p *Provider) Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(p.rand, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// DeriveKey derives a 256-bit key from a passphrase
func (p *Provider) DeriveKey(passphrase, salt []byte, iterations int) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("invalid iteration count %d", iterations)
	}
	return pbkdf2.Key(passphrase, salt, iterations, KeySize, sha256.New), nil
}

// Seal encrypts and authenticates plaintext with AES-256-GCM.
// The tag is appended to the returned ciphertext.
func (p *Provider) Seal(key, nonce, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Open verifies and decrypts ciphertext produced by Seal
func (p *Provider) Open(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < TagSize {
		return nil, ErrAuthFailed
	}

	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
