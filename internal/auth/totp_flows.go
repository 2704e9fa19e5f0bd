package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/totp"
)

// SetupTOTP verifies the password, stores a fresh pending secret with the
// enabled flag off, and returns the provisioning URI for authenticator
// apps. The secret only counts at login once EnableTOTP confirms a code.
func (a *Authenticator) SetupTOTP(ctx context.Context, user *store.User, password, issuer string) (string, error) {
	if !a.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	secret, err := totp.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("auth: generate totp secret: %w", err)
	}
	user.TOTPSecret = secret
	user.TOTPEnabled = false
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return "", fmt.Errorf("auth: store totp secret: %w", err)
	}
	return totp.ProvisionURI(user.Username, issuer, secret), nil
}

// VerifyTOTP is the login-time check: it requires an enabled, non-empty
// secret before consulting the code at all.
func (a *Authenticator) VerifyTOTP(user *store.User, code string) error {
	if !user.TOTPEnabled || strings.TrimSpace(user.TOTPSecret) == "" {
		return ErrTotpDisabled
	}
	if !totp.Verify(code, user.TOTPSecret, a.now().UTC()) {
		return ErrTotpMismatch
	}
	return nil
}

// EnableTOTP confirms enrollment. The code is checked against the pending
// secret with the enabled gate deliberately bypassed: reusing the
// login-time check here would make initial enrollment unreachable, since
// the flag is still off at this point.
func (a *Authenticator) EnableTOTP(ctx context.Context, user *store.User, code string) error {
	if strings.TrimSpace(user.TOTPSecret) == "" {
		return ErrTotpDisabled
	}
	if !totp.Verify(code, user.TOTPSecret, a.now().UTC()) {
		return ErrTotpMismatch
	}
	user.TOTPEnabled = true
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("auth: enable totp: %w", err)
	}
	_ = a.store.LogEvent(ctx, "INFO", "auth", fmt.Sprintf("user %s enabled totp", user.Username), user.ID)
	return nil
}

// DisableTOTP clears the secret and flag after a password check.
func (a *Authenticator) DisableTOTP(ctx context.Context, user *store.User, password string) error {
	if !a.hasher.Verify(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	user.TOTPSecret = ""
	user.TOTPEnabled = false
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("auth: disable totp: %w", err)
	}
	_ = a.store.LogEvent(ctx, "INFO", "auth", fmt.Sprintf("user %s disabled totp", user.Username), user.ID)
	return nil
}
