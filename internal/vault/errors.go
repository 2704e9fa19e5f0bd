package vault

import "errors"

var (
	// ErrLocked is returned by any operation requiring the master key while
	// the vault is locked.
	ErrLocked = errors.New("vault: locked")

	// ErrUnseal covers both a wrong password and a corrupted sealed blob.
	// The two are deliberately indistinguishable so the unseal path cannot
	// be used as a password oracle.
	ErrUnseal = errors.New("vault: wrong password or corrupt sealed key")

	// ErrBlobTooShort is returned for encrypted files shorter than a nonce.
	ErrBlobTooShort = errors.New("vault: encrypted blob too short")
)
