package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and by vaultctl subcommands
// that never touch the appliance database.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*User
	sessions map[string]*Session
	files    map[string]*File
}

func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		users:    map[int64]*User{},
		sessions: map[string]*Session{},
		files:    map[string]*File{},
	}
}

func (m *Memory) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextID
	m.nextID++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetUserByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *Memory) UpdateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.sessions[s.ID] = &clone
	return nil
}

func (m *Memory) GetSessionByID(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *Memory) UpdateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	clone := *s
	m.sessions[s.ID] = &clone
	return nil
}

func (m *Memory) DeactivateExpiredSessions(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var n int64
	for _, s := range m.sessions {
		if s.IsActive && s.LastActivity.Before(cutoff) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateFile(_ context.Context, f *File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.ModifiedAt.IsZero() {
		f.ModifiedAt = now
	}
	clone := *f
	m.files[f.ID] = &clone
	return nil
}

func (m *Memory) GetFile(_ context.Context, userID int64, id string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID || f.IsDeleted {
		return nil, ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (m *Memory) ListFiles(_ context.Context, userID int64) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []File
	for _, f := range m.files {
		if f.UserID == userID && !f.IsDeleted {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *Memory) MarkFileDeleted(_ context.Context, userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	f.IsDeleted = true
	return nil
}

func (m *Memory) LogEvent(context.Context, string, string, string, int64) error {
	return nil
}
