// Package crypto provides the cryptographic primitives behind darkcrypt envelopes.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from a passphrase via PBKDF2
//   - 12-byte random nonce per message
//   - 16-byte authentication tag appended to the ciphertext
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt per message (travels with the payload)
//   - 150,000 iterations
//
// Memory safety:
//   - Use ClearBytes() to zero passphrases and keys after use
package crypto
