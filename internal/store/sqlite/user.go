package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adri6412/usb-vault/internal/store"
)

func (s *Storage) CreateUser(ctx context.Context, u *store.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, totp_secret, totp_enabled, created_at, last_login, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.TOTPSecret, boolInt(u.TOTPEnabled),
		u.CreatedAt.Unix(), unixOrZero(u.LastLogin), boolInt(u.IsActive))
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, totp_secret, totp_enabled, created_at, last_login, is_active
		FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, totp_secret, totp_enabled, created_at, last_login, is_active
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Storage) UpdateUser(ctx context.Context, u *store.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, totp_secret = ?, totp_enabled = ?, last_login = ?, is_active = ?
		WHERE id = ?`,
		u.PasswordHash, u.TOTPSecret, boolInt(u.TOTPEnabled), unixOrZero(u.LastLogin), boolInt(u.IsActive), u.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	var totpEnabled, isActive int
	var createdAt, lastLogin int64
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TOTPSecret, &totpEnabled, &createdAt, &lastLogin, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.TOTPEnabled = totpEnabled != 0
	u.IsActive = isActive != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastLogin != 0 {
		u.LastLogin = time.Unix(lastLogin, 0).UTC()
	}
	return &u, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
