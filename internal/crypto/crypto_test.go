package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestDeriveKeyKnownVector(t *testing.T) {
	p := NewProvider()

	// RFC 7914 section 11, PBKDF2-HMAC-SHA256 "passwd"/"salt"/1, first 32 bytes
	want, _ := hex.DecodeString("55ac046e56e3089fec1691c22544b605f94185216dde0465e68b9d57c20dacbc")

	key, err := p.DeriveKey([]byte("passwd"), []byte("salt"), 1)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if !bytes.Equal(key, want) {
		t.Errorf("key mismatch: got %x, want %x", key, want)
	}
}

func TestDeriveKeyRejectsZeroIterations(t *testing.T) {
	p := NewProvider()
	if _, err := p.DeriveKey([]byte("pass"), []byte("salt"), 0); err == nil {
		t.Error("expected error for zero iterations")
	}
}

func TestSealKnownVector(t *testing.T) {
	p := NewProvider()
	key := make([]byte, KeySize)
	nonce := make([]byte, NonceSize)

	tests := []struct {
		name      string
		plaintext []byte
		want      string
	}{
		// GCM spec test case 13
		{"empty plaintext", nil, "530f8afbc74536b9a963b4f1c4cb738b"},
		// GCM spec test case 14
		{"one zero block", make([]byte, 16), "cea7403d4d606b6e074ec5d3baf39d18d0d1c8a799996bf0265b98b5d48ab919"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := p.Seal(key, nonce, tt.plaintext)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}
			if got := hex.EncodeToString(ct); got != tt.want {
				t.Errorf("ciphertext mismatch: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	p := NewProvider()
	key, err := p.Random(KeySize)
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}
	nonce, err := p.Random(NonceSize)
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}

	plaintext := []byte("attack at dawn")
	ct, err := p.Seal(key, nonce, plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if len(ct) != len(plaintext)+TagSize {
		t.Errorf("ciphertext length = %d, want %d", len(ct), len(plaintext)+TagSize)
	}

	got, err := p.Open(key, nonce, ct)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("plaintext mismatch: got %q, want %q", got, plaintext)
	}
}

func TestOpenFailures(t *testing.T) {
	p := NewProvider()
	key := bytes.Repeat([]byte{1}, KeySize)
	nonce := bytes.Repeat([]byte{2}, NonceSize)

	ct, err := p.Seal(key, nonce, []byte("secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0x01

	wrongKey := bytes.Repeat([]byte{3}, KeySize)

	tests := []struct {
		name  string
		key   []byte
		nonce []byte
		ct    []byte
		want  error
	}{
		{"tampered ciphertext", key, nonce, tampered, ErrAuthFailed},
		{"wrong key", wrongKey, nonce, ct, ErrAuthFailed},
		{"shorter than tag", key, nonce, ct[:TagSize-1], ErrAuthFailed},
		{"short key", key[:16], nonce, ct, ErrInvalidKeySize},
		{"short nonce", key, nonce[:8], ct, ErrInvalidNonceSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Open(tt.key, tt.nonce, tt.ct)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWithRandom(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4})
	p := NewProvider(WithRandom(src))

	b, err := p.Random(4)
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}
	if !bytes.Equal(b, []byte{1, 2, 3, 4}) {
		t.Errorf("got %v, want [1 2 3 4]", b)
	}

	// Source is exhausted now
	if _, err := p.Random(1); err == nil {
		t.Error("expected error from exhausted random source")
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("sensitive")
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not cleared: %d", i, v)
		}
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare([]byte("abc"), []byte("abc")) {
		t.Error("equal slices should compare equal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abd")) {
		t.Error("different slices should not compare equal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abcd")) {
		t.Error("different lengths should not compare equal")
	}
}
