package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adri6412/usb-vault/internal/store"
)

func (s *Storage) CreateFile(ctx context.Context, f *store.File) error {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.ModifiedAt.IsZero() {
		f.ModifiedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, user_id, original_name, encrypted_name, size, mime_type, created_at, modified_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.OriginalName, f.EncryptedName, f.Size, f.MimeType,
		f.CreatedAt.Unix(), f.ModifiedAt.Unix(), boolInt(f.IsDeleted))
	return err
}

func (s *Storage) GetFile(ctx context.Context, userID int64, id string) (*store.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, original_name, encrypted_name, size, mime_type, created_at, modified_at, is_deleted
		FROM files WHERE id = ? AND user_id = ? AND is_deleted = 0`, id, userID)
	f, err := scanFile(row.Scan)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Storage) ListFiles(ctx context.Context, userID int64) ([]store.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, original_name, encrypted_name, size, mime_type, created_at, modified_at, is_deleted
		FROM files WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.File
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *Storage) MarkFileDeleted(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE files SET is_deleted = 1, modified_at = ? WHERE id = ? AND user_id = ?`,
		time.Now().Unix(), id, userID)
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

func scanFile(scan func(...any) error) (*store.File, error) {
	var f store.File
	var isDeleted int
	var createdAt, modifiedAt int64
	err := scan(&f.ID, &f.UserID, &f.OriginalName, &f.EncryptedName, &f.Size, &f.MimeType, &createdAt, &modifiedAt, &isDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	f.IsDeleted = isDeleted != 0
	f.CreatedAt = time.Unix(createdAt, 0).UTC()
	f.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
	return &f, nil
}
