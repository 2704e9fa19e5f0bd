package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adri6412/usb-vault/internal/crypto"
	"github.com/adri6412/usb-vault/internal/store"
)

// Authenticator verifies credentials against the user repository and
// manages session lifecycle. It holds no lock across the deliberately slow
// password hash; every method is safe for concurrent use.
type Authenticator struct {
	store       store.Store
	hasher      *crypto.PasswordHasher
	tokenSecret []byte
	idleTimeout time.Duration

	now func() time.Time // injectable for expiry tests
}

func NewAuthenticator(st store.Store, hasher *crypto.PasswordHasher, tokenSecret []byte, idleTimeout time.Duration) *Authenticator {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Minute
	}
	return &Authenticator{
		store:       st,
		hasher:      hasher,
		tokenSecret: tokenSecret,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// decoyRecord is a structurally valid all-zero password record. Unknown
// usernames verify against it so the miss path pays the same Argon2 cost
// as a real verification.
var decoyRecord = strings.Repeat("00", crypto.PasswordSaltSize+crypto.PasswordDigestSize)

// Authenticate resolves the username and checks the password. Lookup
// failure, verification failure and an inactive account all collapse to
// the same error, and every path runs the full password hash.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		a.hasher.Verify(password, decoyRecord)
		return nil, ErrInvalidCredentials
	}
	if !a.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	user.LastLogin = a.now().UTC()
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("auth: update last login: %w", err)
	}
	_ = a.store.LogEvent(ctx, "INFO", "auth", fmt.Sprintf("user %s logged in", user.Username), user.ID)
	return user, nil
}

// CreateSession persists a new session row and returns its signed bearer
// token. The session id comes from a CSPRNG-backed UUID, never a
// time-seeded generator.
func (a *Authenticator) CreateSession(ctx context.Context, user *store.User, ip, userAgent string) (string, error) {
	now := a.now().UTC()
	sess := &store.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
		IP:           ip,
		UserAgent:    userAgent,
	}
	if err := a.store.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("auth: create session: %w", err)
	}
	return ComposeToken(a.tokenSecret, Token{
		UserID:    user.ID,
		SessionID: sess.ID,
		IssuedAt:  now.Unix(),
	}), nil
}

// VerifySession validates a bearer token and returns the owning user.
// Order matters: signature and expiry are checked before touching the
// database, then the session row must be active and agree on the user.
func (a *Authenticator) VerifySession(ctx context.Context, token string) (*store.User, error) {
	t, err := ParseToken(a.tokenSecret, token)
	if err != nil {
		return nil, err
	}
	if a.now().Unix()-t.IssuedAt > int64(a.idleTimeout.Seconds()) {
		return nil, ErrSessionExpired
	}
	sess, err := a.store.GetSessionByID(ctx, t.SessionID)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if !sess.IsActive || sess.UserID != t.UserID {
		return nil, ErrSessionInvalid
	}
	sess.LastActivity = a.now().UTC()
	if err := a.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("auth: touch session: %w", err)
	}
	user, err := a.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	return user, nil
}

// InvalidateSession deactivates the session a token points at. The
// signature still has to check out; a forged token cannot log anyone out.
func (a *Authenticator) InvalidateSession(ctx context.Context, token string) error {
	t, err := ParseToken(a.tokenSecret, token)
	if err != nil {
		return err
	}
	sess, err := a.store.GetSessionByID(ctx, t.SessionID)
	if err != nil {
		return ErrSessionInvalid
	}
	sess.IsActive = false
	if err := a.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("auth: invalidate session: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and stores a fresh hash of
// the new one. Resealing the master key is the caller's job; the two
// updates belong to different owners.
func (a *Authenticator) ChangePassword(ctx context.Context, user *store.User, current, next string) error {
	if !a.hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := a.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("auth: store password: %w", err)
	}
	_ = a.store.LogEvent(ctx, "INFO", "auth", fmt.Sprintf("user %s changed password", user.Username), user.ID)
	return nil
}

// CleanupExpiredSessions bulk-deactivates sessions idle past the timeout.
func (a *Authenticator) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return a.store.DeactivateExpiredSessions(ctx, a.idleTimeout)
}

// IdleTimeout exposes the configured timeout to the transport layer.
func (a *Authenticator) IdleTimeout() time.Duration {
	return a.idleTimeout
}
