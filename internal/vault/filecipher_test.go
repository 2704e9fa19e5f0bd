package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adri6412/usb-vault/internal/crypto"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestEncryptDecryptFileRoundTrip(t *testing.T) {
	v, _ := newTestVault()
	if err := v.Init("pw"); err != nil {
		t.Fatalf("init: %v", err)
	}
	pt := []byte("the contents of a very private document")
	path := writeTemp(t, pt)

	if err := v.EncryptFile(path, "file-1"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(onDisk, pt) {
		t.Fatal("plaintext visible in the encrypted file")
	}
	if len(onDisk) != crypto.NonceSize+len(pt)+crypto.TagSize {
		t.Fatalf("blob length = %d, want %d", len(onDisk), crypto.NonceSize+len(pt)+crypto.TagSize)
	}

	got, err := v.DecryptFile(path, "file-1")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, got) {
		t.Fatal("plaintext mismatch")
	}
}

func TestDecryptFileWrongID(t *testing.T) {
	v, _ := newTestVault()
	if err := v.Init("pw"); err != nil {
		t.Fatalf("init: %v", err)
	}
	path := writeTemp(t, []byte("data"))
	if err := v.EncryptFile(path, "file-1"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := v.DecryptFile(path, "file-2"); !errors.Is(err, crypto.ErrAuthFailure) {
		t.Fatalf("err = %v, want ErrAuthFailure", err)
	}
}

func TestDecryptFileTampered(t *testing.T) {
	v, _ := newTestVault()
	if err := v.Init("pw"); err != nil {
		t.Fatalf("init: %v", err)
	}
	path := writeTemp(t, []byte("data"))
	if err := v.EncryptFile(path, "file-1"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	blob[len(blob)-1] ^= 0x01
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := v.DecryptFile(path, "file-1"); !errors.Is(err, crypto.ErrAuthFailure) {
		t.Fatalf("err = %v, want ErrAuthFailure", err)
	}
}

func TestDecryptFileTooShort(t *testing.T) {
	v, _ := newTestVault()
	if err := v.Init("pw"); err != nil {
		t.Fatalf("init: %v", err)
	}
	path := writeTemp(t, []byte{0x01, 0x02, 0x03})
	if _, err := v.DecryptFile(path, "file-1"); !errors.Is(err, ErrBlobTooShort) {
		t.Fatalf("err = %v, want ErrBlobTooShort", err)
	}
}

func TestEncryptFileWhileLocked(t *testing.T) {
	v, _ := newTestVault()
	path := writeTemp(t, []byte("data"))
	if err := v.EncryptFile(path, "file-1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
	if _, err := v.DecryptFile(path, "file-1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestSecureDelete(t *testing.T) {
	v, _ := newTestVault()
	path := writeTemp(t, []byte("shred me"))
	if err := v.SecureDelete(path); err != nil {
		t.Fatalf("secure delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file still present after SecureDelete")
	}
	// Deleting an already-missing file is not an error.
	if err := v.SecureDelete(path); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
