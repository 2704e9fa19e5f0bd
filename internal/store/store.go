package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	TOTPSecret   string
	TOTPEnabled  bool
	CreatedAt    time.Time
	LastLogin    time.Time // zero when the user has never logged in
	IsActive     bool
}

type Session struct {
	ID           string
	UserID       int64
	CreatedAt    time.Time
	LastActivity time.Time
	IsActive     bool
	IP           string
	UserAgent    string
}

type File struct {
	ID            string
	UserID        int64
	OriginalName  string
	EncryptedName string
	Size          int64
	MimeType      string
	CreatedAt     time.Time
	ModifiedAt    time.Time
	IsDeleted     bool
}

// Store is the narrow repository surface the security core consumes. The
// core performs read-modify-write sequences over it without transactions;
// acceptable for a single appliance, not a strict-isolation guarantee.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	UpdateUser(ctx context.Context, u *User) error

	CreateSession(ctx context.Context, s *Session) error
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	DeactivateExpiredSessions(ctx context.Context, olderThan time.Duration) (int64, error)

	CreateFile(ctx context.Context, f *File) error
	GetFile(ctx context.Context, userID int64, id string) (*File, error)
	ListFiles(ctx context.Context, userID int64) ([]File, error)
	MarkFileDeleted(ctx context.Context, userID int64, id string) error

	LogEvent(ctx context.Context, level, component, message string, userID int64) error
}
