package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// MemoryRefreshTokens is a mutex-guarded RefreshTokens for tests and local
// wiring. Each method is atomic, matching the guarantee the bun store gets
// from single-statement SQL.
type MemoryRefreshTokens struct {
	mu      sync.Mutex
	byUser  map[uuid.UUID]*RefreshToken
	byValue map[string]*RefreshToken
}

var _ RefreshTokens = (*MemoryRefreshTokens)(nil)

func NewMemoryRefreshTokens() *MemoryRefreshTokens {
	return &MemoryRefreshTokens{
		byUser:  map[uuid.UUID]*RefreshToken{},
		byValue: map[string]*RefreshToken{},
	}
}

func (m *MemoryRefreshTokens) Upsert(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	if prev, ok := m.byUser[userID]; ok {
		record.ID = prev.ID
		record.CreatedAt = prev.CreatedAt
		delete(m.byValue, prev.Token)
	}

	m.byUser[userID] = record
	m.byValue[token] = record

	return cloneRefreshToken(record), nil
}

func (m *MemoryRefreshTokens) FindByValue(ctx context.Context, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byValue[token]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}

	return cloneRefreshToken(record), nil
}

func (m *MemoryRefreshTokens) DeleteByValue(ctx context.Context, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byValue[token]
	if !ok {
		return nil, nil
	}

	delete(m.byValue, token)
	delete(m.byUser, record.UserID)

	return cloneRefreshToken(record), nil
}

func (m *MemoryRefreshTokens) Rotate(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byUser[userID]
	if !ok || current.Token != oldToken {
		return ErrRefreshTokenRevoked
	}

	delete(m.byValue, current.Token)

	now := time.Now()
	current.Token = newToken
	current.UpdatedAt = &now
	m.byValue[newToken] = current

	return nil
}

func cloneRefreshToken(record *RefreshToken) *RefreshToken {
	if record == nil {
		return nil
	}
	clone := *record
	return &clone
}
