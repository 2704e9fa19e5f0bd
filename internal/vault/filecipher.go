package vault

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/adri6412/usb-vault/internal/crypto"
)

// DeriveFileKey recomputes the 32-byte key for a file identifier from the
// master key. The key is never persisted; it lives for one call.
func (v *Vault) DeriveFileKey(fileID string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deriveFileKeyLocked(fileID)
}

func (v *Vault) deriveFileKeyLocked(fileID string) ([]byte, error) {
	if v.key == nil {
		return nil, ErrLocked
	}
	key, err := crypto.DeriveKey(v.key, fileID, 32)
	if err != nil {
		return nil, fmt.Errorf("vault: derive file key: %w", err)
	}
	return key, nil
}

// EncryptFile encrypts the file at path in place under the key derived for
// fileID, writing back nonce || ciphertext || tag. The vault mutex is held
// for the whole operation so a concurrent Lock cannot zero the key
// mid-encryption.
func (v *Vault) EncryptFile(path, fileID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	fileKey, err := v.deriveFileKeyLocked(fileID)
	if err != nil {
		return err
	}
	defer crypto.Zero(fileKey)

	plaintext, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	defer crypto.Zero(plaintext)

	blob, err := crypto.SealBlob(fileKey, plaintext)
	if err != nil {
		return fmt.Errorf("vault: encrypt %s: %w", fileID, err)
	}
	return os.WriteFile(path, blob, 0o600)
}

// DecryptFile reads the stored blob, splits the nonce and decrypts. An
// authentication failure propagates unchanged; unauthenticated plaintext
// is never returned.
func (v *Vault) DecryptFile(path, fileID string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fileKey, err := v.deriveFileKeyLocked(fileID)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(fileKey)

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(blob) < crypto.NonceSize {
		return nil, ErrBlobTooShort
	}
	return crypto.OpenBlob(fileKey, blob)
}

// SecureDelete overwrites the file with random data three times, syncing
// after each pass, then removes it. Best effort only: flash translation
// layers and copy-on-write filesystems may retain old blocks.
func (v *Vault) SecureDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	size := info.Size()
	junk := make([]byte, size)
	for pass := 0; pass < 3; pass++ {
		if _, err := rand.Read(junk); err != nil {
			f.Close()
			return err
		}
		if _, err := f.WriteAt(junk, 0); err != nil {
			f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
