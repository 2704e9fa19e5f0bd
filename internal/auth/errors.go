package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike, so login failures reveal nothing about account existence.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrSessionInvalid covers malformed tokens, bad signatures, unknown or
	// inactive sessions and user-id mismatches.
	ErrSessionInvalid = errors.New("auth: invalid session")

	// ErrSessionExpired is returned when the idle timeout has elapsed.
	ErrSessionExpired = errors.New("auth: session expired")

	// ErrTotpDisabled is returned when TOTP verification is requested for a
	// user without an enabled, non-empty secret.
	ErrTotpDisabled = errors.New("auth: totp not enabled")

	// ErrTotpMismatch is returned when the submitted code matches no
	// accepted time step.
	ErrTotpMismatch = errors.New("auth: totp code mismatch")
)
