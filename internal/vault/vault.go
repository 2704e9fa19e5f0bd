package vault

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/adri6412/usb-vault/internal/crypto"
)

const masterKeySize = 32

// KeyStore is the persistence collaborator holding the sealed master key.
type KeyStore interface {
	LoadSealedKey() ([]byte, error)
	StoreSealedKey(blob []byte) error
}

// Vault owns the in-memory master key and its locked/unlocked state.
// All state access is serialized under one mutex so a concurrent Lock
// cannot zero the key mid-encryption.
type Vault struct {
	mu     sync.Mutex
	key    []byte // exactly 32 bytes while unlocked, nil otherwise
	hasher *crypto.PasswordHasher
	keys   KeyStore
}

func New(hasher *crypto.PasswordHasher, keys KeyStore) *Vault {
	return &Vault{hasher: hasher, keys: keys}
}

// GenerateMasterKey draws a fresh 32-byte master key from the CSPRNG.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal wraps a master key under a password: Argon2id over (password, fresh
// salt) yields the KEK, then ChaCha20-Poly1305 with a fresh nonce encrypts
// the key.
func (v *Vault) Seal(masterKey []byte, password string) (SealedKey, error) {
	salt := make([]byte, crypto.PasswordSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return SealedKey{}, err
	}
	kek := v.hasher.DeriveKey(password, salt)
	defer crypto.Zero(kek[:])

	nonce, err := crypto.NewNonce()
	if err != nil {
		return SealedKey{}, err
	}
	ct, err := crypto.Encrypt(kek[:], nonce, masterKey)
	if err != nil {
		return SealedKey{}, fmt.Errorf("vault: seal: %w", err)
	}
	return SealedKey{Salt: salt, Nonce: nonce, Data: ct}, nil
}

// Unseal recovers the master key from a sealed blob. Every failure mode
// collapses to ErrUnseal.
func (v *Vault) Unseal(sealed SealedKey, password string) ([]byte, error) {
	kek := v.hasher.DeriveKey(password, sealed.Salt)
	defer crypto.Zero(kek[:])

	key, err := crypto.Decrypt(kek[:], sealed.Nonce, sealed.Data)
	if err != nil {
		return nil, ErrUnseal
	}
	if len(key) != masterKeySize {
		crypto.Zero(key)
		return nil, ErrUnseal
	}
	return key, nil
}

// Init generates a new master key, seals it under the password, persists
// the sealed blob and leaves the vault unlocked.
func (v *Vault) Init(password string) error {
	key, err := GenerateMasterKey()
	if err != nil {
		return err
	}
	sealed, err := v.Seal(key, password)
	if err != nil {
		crypto.Zero(key)
		return err
	}
	blob, err := sealed.Encode()
	if err != nil {
		crypto.Zero(key)
		return err
	}
	if err := v.keys.StoreSealedKey(blob); err != nil {
		crypto.Zero(key)
		return err
	}
	v.adopt(key)
	return nil
}

// Unlock loads the persisted sealed key, unseals it with the password and
// transitions to Unlocked.
func (v *Vault) Unlock(password string) error {
	blob, err := v.keys.LoadSealedKey()
	if err != nil {
		return fmt.Errorf("vault: load sealed key: %w", err)
	}
	sealed, err := DecodeSealedKey(blob)
	if err != nil {
		return ErrUnseal
	}
	key, err := v.Unseal(sealed, password)
	if err != nil {
		return err
	}
	v.adopt(key)
	return nil
}

// Reseal wraps the current master key under a new password and persists
// the new blob; the key itself does not change, so files stay readable.
// The slow KEK derivation runs on a private copy of the key, outside the
// mutex, so concurrent vault operations are not stalled behind it.
func (v *Vault) Reseal(password string) error {
	v.mu.Lock()
	if v.key == nil {
		v.mu.Unlock()
		return ErrLocked
	}
	key := make([]byte, len(v.key))
	copy(key, v.key)
	v.mu.Unlock()
	defer crypto.Zero(key)

	sealed, err := v.Seal(key, password)
	if err != nil {
		return err
	}
	blob, err := sealed.Encode()
	if err != nil {
		return err
	}
	return v.keys.StoreSealedKey(blob)
}

// Lock zeroes the in-memory key and transitions to Locked.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil {
		crypto.Zero(v.key)
		_ = crypto.UnlockMemory(v.key)
		v.key = nil
	}
}

func (v *Vault) IsUnlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key != nil
}

func (v *Vault) adopt(key []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil {
		crypto.Zero(v.key)
		_ = crypto.UnlockMemory(v.key)
	}
	_ = crypto.LockMemory(key) // best effort; key stays usable without mlock
	v.key = key
}
