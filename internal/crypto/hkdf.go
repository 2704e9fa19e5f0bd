package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfSalt is the application-wide HKDF salt. It predates this rewrite and
// must not change: every file key on disk was derived with it.
const hkdfSalt = "vaultusb_file_key"

// DeriveKey expands rootKey into a purpose-bound subkey of the requested
// length via HKDF-SHA256, using label as the info parameter. Deterministic
// for fixed (rootKey, label); distinct labels yield independent keys.
func DeriveKey(rootKey []byte, label string, length int) ([]byte, error) {
	stream := hkdf.New(sha256.New, rootKey, []byte(hkdfSalt), []byte(label))
	out := make([]byte, length)
	if _, err := io.ReadFull(stream, out); err != nil {
		return nil, err
	}
	return out, nil
}
