package files

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/vault"
)

// Service orchestrates encrypted file placement: metadata rows in the
// repository, ciphertext blobs under the vault directory. All crypto goes
// through the vault, so every operation fails while it is locked.
type Service struct {
	store  store.Store
	vault  *vault.Vault
	dir    string
	logger *log.Logger
}

func NewService(st store.Store, v *vault.Vault, dir string, logger *log.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Service{store: st, vault: v, dir: dir, logger: logger}, nil
}

// Save writes the plaintext under a random on-disk name, encrypts it in
// place keyed by a fresh file id, and records the metadata.
func (s *Service) Save(ctx context.Context, user *store.User, name string, data []byte) (*store.File, error) {
	fileID := uuid.NewString()
	encName, err := randomName()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, encName)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	if err := s.vault.EncryptFile(path, fileID); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	rec := &store.File{
		ID:            fileID,
		UserID:        user.ID,
		OriginalName:  name,
		EncryptedName: encName,
		Size:          int64(len(data)),
		MimeType:      mimeType(name),
	}
	if err := s.store.CreateFile(ctx, rec); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("files: record %s: %w", name, err)
	}
	_ = s.store.LogEvent(ctx, "INFO", "storage", fmt.Sprintf("file %q stored by %s", name, user.Username), user.ID)
	return rec, nil
}

// Open decrypts a stored file and returns its plaintext and metadata.
func (s *Service) Open(ctx context.Context, user *store.User, fileID string) ([]byte, *store.File, error) {
	rec, err := s.store.GetFile(ctx, user.ID, fileID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.vault.DecryptFile(filepath.Join(s.dir, rec.EncryptedName), rec.ID)
	if err != nil {
		return nil, nil, err
	}
	return data, rec, nil
}

func (s *Service) List(ctx context.Context, user *store.User) ([]store.File, error) {
	return s.store.ListFiles(ctx, user.ID)
}

// Delete overwrites and removes the ciphertext, then soft-deletes the row.
func (s *Service) Delete(ctx context.Context, user *store.User, fileID string) error {
	rec, err := s.store.GetFile(ctx, user.ID, fileID)
	if err != nil {
		return err
	}
	if err := s.vault.SecureDelete(filepath.Join(s.dir, rec.EncryptedName)); err != nil {
		s.logger.Printf("secure delete %s: %v", rec.ID, err)
	}
	if err := s.store.MarkFileDeleted(ctx, user.ID, fileID); err != nil {
		return err
	}
	_ = s.store.LogEvent(ctx, "INFO", "storage", fmt.Sprintf("file %q deleted by %s", rec.OriginalName, user.Username), user.ID)
	return nil
}

func randomName() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func mimeType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
