package encryption

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"

	"sfh-go/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()

	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "sfh.pub"),
		PrivateKeyPath: filepath.Join(dir, "sfh.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	e := newTestAgeEncryptor(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup")
	}

	if err := e.Setup("correct horse battery staple"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup")
	}

	pub, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		t.Fatalf("reading public key: %v", err)
	}
	if !bytes.HasPrefix(pub, []byte("age1")) {
		t.Errorf("public key does not look like an age recipient: %q", pub)
	}

	info, err := os.Stat(e.privateKeyPath)
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("private key permissions = %o, want 0600", info.Mode().Perm())
	}
}

func TestAgeEncryptor_EncryptRoundTrip(t *testing.T) {
	e := newTestAgeEncryptor(t)
	passphrase := "test-passphrase"

	if err := e.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	plaintext := []byte("flagged file content")
	var ciphertext bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(plaintext), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(ciphertext.Bytes(), plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	// Recover the identity the way an operator would offline: decrypt the
	// passphrase-protected private key, then decrypt the bundle with it.
	privData, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		t.Fatalf("reading private key: %v", err)
	}
	scryptIdentity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		t.Fatalf("NewScryptIdentity() error = %v", err)
	}
	keyReader, err := age.Decrypt(bytes.NewReader(privData), scryptIdentity)
	if err != nil {
		t.Fatalf("decrypting private key: %v", err)
	}
	keyData, err := io.ReadAll(keyReader)
	if err != nil {
		t.Fatalf("reading decrypted private key: %v", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil || len(identities) == 0 {
		t.Fatalf("parsing identities: %v (%d found)", err, len(identities))
	}

	decReader, err := age.Decrypt(&ciphertext, identities[0])
	if err != nil {
		t.Fatalf("decrypting ciphertext: %v", err)
	}
	recovered, err := io.ReadAll(decReader)
	if err != nil {
		t.Fatalf("reading decrypted data: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Errorf("round trip = %q, want %q", recovered, plaintext)
	}
}

func TestAgeEncryptor_EncryptWithoutSetup(t *testing.T) {
	e := newTestAgeEncryptor(t)

	var out bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("x")), &out); err == nil {
		t.Error("Encrypt() expected error without keys, got nil")
	}
}
