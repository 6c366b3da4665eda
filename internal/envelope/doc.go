// Package envelope turns a passphrase and a text message into a portable,
// self-describing ciphertext string and back.
//
// Wire format (all fields unpadded base64url):
//
//	v1.<salt:16 bytes>.<iv:12 bytes>.<ciphertext||tag>
//
// Each Encrypt call draws a fresh salt and IV, derives a 256-bit key with
// PBKDF2-HMAC-SHA256 (150,000 iterations) and seals the UTF-8 plaintext with
// AES-256-GCM. The key lives only for the duration of the call.
//
// Decrypt reports a single ErrDecryptionFailed for a wrong passphrase, a
// tampered payload or a corrupted ciphertext. Callers cannot tell these
// cases apart.
package envelope
