// Package storage provides the BBolt-backed payload journal for darkcrypt.
//
// Database structure uses two buckets:
//   - config: format version and timestamps
//   - payloads: JSON entries keyed by a zero-padded hex sequence number
//
// The journal holds ciphertext payloads and labels only. Plaintext and
// passphrases are never written.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
