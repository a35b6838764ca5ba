package hoard

import "io"

// Encryptor handles at-rest encryption of snapshot files.
// Encryption uses the public key only, so the scheduled run never needs a
// passphrase. Decryption unlocks the private key with the passphrase each
// time; a cron-driven tool has no interactive session to keep a key open.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `hoard key init`.
	// Generates a key pair, stores the public key in plaintext, and encrypts
	// the private key with the provided passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt unlocks the private key with the passphrase, decrypts data
	// read from r and writes plaintext to w. Returns an error if the
	// passphrase is incorrect.
	Decrypt(passphrase string, r io.Reader, w io.Writer) error

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}
