package credentials

import (
	"context"
	"sync"
)

// Credentials is the token pair held for the current actor.
type Credentials struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Empty reports whether no access token is held
func (c Credentials) Empty() bool {
	return c.AccessToken == ""
}

// Store persists the credentials (cookies, files, redis...).
// Write must be atomic with respect to subsequent Reads.
type Store interface {
	Read(ctx context.Context) (Credentials, error)
	Write(ctx context.Context, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store, used by tests and short-lived clients.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(initial Credentials) *MemoryStore {
	return &MemoryStore{creds: initial}
}

func (s *MemoryStore) Read(_ context.Context) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, nil
}

func (s *MemoryStore) Write(_ context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{AccessToken: accessToken, RefreshToken: refreshToken}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}
