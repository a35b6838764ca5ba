package encryption_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"hoard-go/internal/config"
	"hoard-go/internal/encryption"
)

func newAgeEncryptor(t *testing.T) *encryption.AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return encryption.NewAgeEncryptor(config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "hoard.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "hoard.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	e := newAgeEncryptor(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup")
	}
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup")
	}
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	e := newAgeEncryptor(t)
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	plaintext := []byte(`{"projects":[{"id":1}]}`)

	var ciphertext bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(plaintext), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(ciphertext.Bytes(), []byte("projects")) {
		t.Error("ciphertext contains plaintext")
	}

	var decrypted bytes.Buffer
	if err := e.Decrypt("correct horse", bytes.NewReader(ciphertext.Bytes()), &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted.Bytes(), plaintext) {
		t.Errorf("round trip = %q, want %q", decrypted.Bytes(), plaintext)
	}
}

func TestAgeEncryptor_WrongPassphrase(t *testing.T) {
	e := newAgeEncryptor(t)
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var ciphertext bytes.Buffer
	if err := e.Encrypt(strings.NewReader("data"), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	var out bytes.Buffer
	if err := e.Decrypt("battery staple", bytes.NewReader(ciphertext.Bytes()), &out); err == nil {
		t.Fatal("Decrypt() expected error for a wrong passphrase")
	}
}

func TestAgeEncryptor_EncryptWithoutKeys(t *testing.T) {
	e := newAgeEncryptor(t)

	var out bytes.Buffer
	if err := e.Encrypt(strings.NewReader("data"), &out); err == nil {
		t.Fatal("Encrypt() expected error before Setup")
	}
}

func TestTestEncryptor(t *testing.T) {
	e := encryption.NewTestEncryptor()

	var ciphertext bytes.Buffer
	if err := e.Encrypt(strings.NewReader("payload"), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.HasPrefix(ciphertext.Bytes(), []byte("HOARDENC")) {
		t.Error("test ciphertext is missing its header")
	}

	var out bytes.Buffer
	if err := e.Decrypt("", bytes.NewReader(ciphertext.Bytes()), &out); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if out.String() != "payload" {
		t.Errorf("round trip = %q, want payload", out.String())
	}

	var junk bytes.Buffer
	if err := e.Decrypt("", strings.NewReader("not encrypted"), &junk); err == nil {
		t.Fatal("Decrypt() expected error for foreign data")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Run("none yields nil", func(t *testing.T) {
		e, err := encryption.NewEncryptorFromConfig(config.EncryptionConfig{Type: "none"})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if e != nil {
			t.Error("expected nil encryptor for type none")
		}
	})

	t.Run("age yields an AgeEncryptor", func(t *testing.T) {
		e, err := encryption.NewEncryptorFromConfig(config.EncryptionConfig{Type: "age"})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := e.(*encryption.AgeEncryptor); !ok {
			t.Errorf("encryptor type = %T, want *AgeEncryptor", e)
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		if _, err := encryption.NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
			t.Fatal("expected error for unknown encryption type")
		}
	})
}
