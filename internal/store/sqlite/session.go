package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adri6412/usb-vault/internal/store"
)

func (s *Storage) CreateSession(ctx context.Context, sess *store.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, last_activity, is_active, ip, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt.Unix(), sess.LastActivity.Unix(),
		boolInt(sess.IsActive), sess.IP, sess.UserAgent)
	return err
}

func (s *Storage) GetSessionByID(ctx context.Context, id string) (*store.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, last_activity, is_active, ip, user_agent
		FROM sessions WHERE id = ?`, id)

	var sess store.Session
	var isActive int
	var createdAt, lastActivity int64
	err := row.Scan(&sess.ID, &sess.UserID, &createdAt, &lastActivity, &isActive, &sess.IP, &sess.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.IsActive = isActive != 0
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.LastActivity = time.Unix(lastActivity, 0).UTC()
	return &sess, nil
}

func (s *Storage) UpdateSession(ctx context.Context, sess *store.Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity = ?, is_active = ? WHERE id = ?`,
		sess.LastActivity.Unix(), boolInt(sess.IsActive), sess.ID)
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

// DeactivateExpiredSessions flips is_active for every session idle longer
// than olderThan, as a single bulk statement.
func (s *Storage) DeactivateExpiredSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = 0 WHERE is_active = 1 AND last_activity < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
