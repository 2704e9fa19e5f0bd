package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	// PasswordSaltSize is the salt length baked into stored password records.
	PasswordSaltSize = 16
	// PasswordDigestSize is the Argon2id output length.
	PasswordDigestSize = 32
)

var ErrMalformedHash = errors.New("crypto: malformed password record")

type Argon2Params struct {
	Time        uint32 // iterations
	Memory      uint32 // in KiB
	Parallelism uint8
}

var DefaultArgon2 = Argon2Params{
	Time:        3,
	Memory:      64 * 1024,
	Parallelism: 1,
}

// PasswordHasher produces and verifies salted Argon2id password records.
// The stored format is hex(salt[16] || digest[32]), byte-compatible with
// existing appliance deployments.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(p Argon2Params) *PasswordHasher {
	if p.Time == 0 {
		p = DefaultArgon2
	}
	return &PasswordHasher{params: p}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, PasswordSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, PasswordDigestSize)
	record := make([]byte, 0, PasswordSaltSize+PasswordDigestSize)
	record = append(record, salt...)
	record = append(record, digest...)
	return hex.EncodeToString(record), nil
}

// Verify recomputes the digest for the record's salt and compares in
// constant time. A malformed record verifies false rather than erroring:
// on the login path a stored-data problem must look exactly like a wrong
// password.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	record, err := hex.DecodeString(encoded)
	if err != nil || len(record) < PasswordSaltSize+PasswordDigestSize {
		return false
	}
	salt := record[:PasswordSaltSize]
	stored := record[PasswordSaltSize:]
	digest := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, uint32(len(stored)))
	defer Zero(digest)
	return subtle.ConstantTimeCompare(digest, stored) == 1
}

// DeriveKey runs the same Argon2id KDF with a caller-supplied salt,
// producing the key-encrypting key used to seal the master key.
func (h *PasswordHasher) DeriveKey(password string, salt []byte) [32]byte {
	var kek [32]byte
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, 32)
	copy(kek[:], key)
	Zero(key)
	return kek
}

// ValidateRecord reports whether a stored password record is structurally
// sound. Local diagnostics only; never called on an auth path.
func ValidateRecord(encoded string) error {
	record, err := hex.DecodeString(encoded)
	if err != nil {
		return ErrMalformedHash
	}
	if len(record) < PasswordSaltSize+PasswordDigestSize {
		return ErrMalformedHash
	}
	return nil
}
