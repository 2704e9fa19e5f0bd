package store

import (
	"os"
	"path/filepath"
)

// FileKeyStore keeps the sealed master key in a single file, the way the
// appliance has always stored it (e.g. /opt/vaultusb/master.key).
type FileKeyStore struct {
	path string
}

func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

func (f *FileKeyStore) LoadSealedKey() ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return b, err
}

func (f *FileKeyStore) StoreSealedKey(blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, blob, 0o600)
}

// Exists reports whether a sealed key has been initialized.
func (f *FileKeyStore) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}
