package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/repository"
)

// In-memory repositories backing the end-to-end handler tests.

type memUsers struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*domain.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, email: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.NormalizeEmail(user.Email)
	if _, exists := m.email[key]; exists {
		return repository.ErrDuplicateEmail
	}
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.byID[user.ID] = user.Clone()
	m.email[key] = user.ID
	return nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	m.byID[user.ID] = user.Clone()
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	id, ok := m.email[domain.NormalizeEmail(email)]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsEmailVerified = true
	return nil
}

func (m *memUsers) setRole(id string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Role = role
}

type memToken struct {
	id, userID, token string
	expiresAt         time.Time
	usedAt            *time.Time
}

type memTokens struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*memToken
}

func newMemTokens() *memTokens {
	return &memTokens{rows: map[string]*memToken{}}
}

func (m *memTokens) create(userID, token string, expiresAt time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("tok-%d", m.seq)
	m.rows[token] = &memToken{id: id, userID: userID, token: token, expiresAt: expiresAt}
	return id
}

func (m *memTokens) get(token string) (*memToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memTokens) markUsed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.id == id && row.usedAt == nil {
			now := time.Now()
			row.usedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memTokens) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.id == id {
			row.usedAt = nil
		}
	}
}

func (m *memTokens) invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.userID == userID && row.usedAt == nil {
			now := time.Now()
			row.usedAt = &now
		}
	}
}

func (m *memTokens) latestFor(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *memToken
	for _, row := range m.rows {
		if row.userID == userID && row.usedAt == nil {
			latest = row
		}
	}
	if latest == nil {
		return ""
	}
	return latest.token
}

type memResets struct{ *memTokens }

func (m memResets) Create(_ context.Context, t *domain.PasswordResetToken) error {
	t.ID = m.create(t.UserID, t.Token, t.ExpiresAt)
	return nil
}

func (m memResets) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	row, err := m.get(token)
	if err != nil {
		return nil, err
	}
	return &domain.PasswordResetToken{ID: row.id, UserID: row.userID, Token: row.token, ExpiresAt: row.expiresAt, UsedAt: row.usedAt}, nil
}

func (m memResets) MarkUsed(_ context.Context, id string) error { return m.markUsed(id) }

func (m memResets) Release(_ context.Context, id string) error {
	m.release(id)
	return nil
}

func (m memResets) InvalidateForUser(_ context.Context, userID string) error {
	m.invalidate(userID)
	return nil
}

type memVerifications struct{ *memTokens }

func (m memVerifications) Create(_ context.Context, t *domain.EmailVerificationToken) error {
	t.ID = m.create(t.UserID, t.Token, t.ExpiresAt)
	return nil
}

func (m memVerifications) GetByToken(_ context.Context, token string) (*domain.EmailVerificationToken, error) {
	row, err := m.get(token)
	if err != nil {
		return nil, err
	}
	return &domain.EmailVerificationToken{ID: row.id, UserID: row.userID, Token: row.token, ExpiresAt: row.expiresAt, UsedAt: row.usedAt}, nil
}

func (m memVerifications) MarkUsed(_ context.Context, id string) error { return m.markUsed(id) }

func (m memVerifications) InvalidateForUser(_ context.Context, userID string) error {
	m.invalidate(userID)
	return nil
}
