package sfh

import "io"

// Encryptor encrypts exported report bundles so loot does not leave
// the host in plaintext.
type Encryptor interface {
	// Setup generates and stores a new key pair.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// IsConfigured reports whether encryption keys are available.
	IsConfigured() bool
}
