package envelope

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrDecodingFailed    = errors.New("decrypted data is not valid UTF-8")
	ErrCryptoUnavailable = errors.New("crypto unavailable")

	// ErrUnsupportedVersion is also an ErrMalformedPayload.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrMalformedPayload)

	// Causes of ErrInvalidInput
	ErrEmptyPlaintext  = fmt.Errorf("%w: empty plaintext", ErrInvalidInput)
	ErrEmptyPassphrase = fmt.Errorf("%w: empty passphrase", ErrInvalidInput)
	ErrEmptyPayload    = fmt.Errorf("%w: empty payload", ErrInvalidInput)
	ErrInvalidText     = fmt.Errorf("%w: plaintext is not valid UTF-8", ErrInvalidInput)
)

// Error kinds returned by KindOf
const (
	KindInvalidInput       = "invalid_input"
	KindMalformedPayload   = "malformed_payload"
	KindUnsupportedVersion = "unsupported_version"
	KindDecryptionFailed   = "decryption_failed"
	KindDecodingFailed     = "decoding_failed"
	KindCryptoUnavailable  = "crypto_unavailable"
	KindUnknown            = "unknown"
)

// KindOf maps an error returned by this package to a stable short name.
// It returns an empty string for a nil error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrUnsupportedVersion):
		// must precede the malformed check, unsupported wraps malformed
		return KindUnsupportedVersion
	case errors.Is(err, ErrMalformedPayload):
		return KindMalformedPayload
	case errors.Is(err, ErrDecryptionFailed):
		return KindDecryptionFailed
	case errors.Is(err, ErrDecodingFailed):
		return KindDecodingFailed
	case errors.Is(err, ErrCryptoUnavailable):
		return KindCryptoUnavailable
	default:
		return KindUnknown
	}
}
