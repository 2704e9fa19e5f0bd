package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// LogEvent appends a system-log entry. Each entry's chain_hash covers the
// previous entry's hash plus its own content, so after-the-fact edits to
// the log are detectable.
func (s *Storage) LogEvent(ctx context.Context, level, component, message string, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var prev string
	err = tx.QueryRowContext(ctx, `SELECT chain_hash FROM system_log ORDER BY id DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte(level))
	h.Write([]byte(component))
	h.Write([]byte(message))
	chain := hex.EncodeToString(h.Sum(nil))

	_, err = tx.ExecContext(ctx, `
		INSERT INTO system_log (level, component, message, user_id, created_at, chain_hash)
		VALUES (?, ?, ?, ?, ?, ?)`,
		level, component, message, userID, time.Now().Unix(), chain)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// VerifyEventChain walks the whole log and recomputes every hash link.
func (s *Storage) VerifyEventChain(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, component, message, chain_hash FROM system_log ORDER BY id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var prev string
	for rows.Next() {
		var level, component, message, chain string
		if err := rows.Scan(&level, &component, &message, &chain); err != nil {
			return err
		}
		h := sha256.New()
		h.Write([]byte(prev))
		h.Write([]byte(level))
		h.Write([]byte(component))
		h.Write([]byte(message))
		if hex.EncodeToString(h.Sum(nil)) != chain {
			return fmt.Errorf("system log chain broken at %q", message)
		}
		prev = chain
	}
	return rows.Err()
}
