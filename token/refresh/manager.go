package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

const defaultTokenLength = 32

// Manager handles refresh token creation, lookup and expiry
type Manager struct {
	repo        Repo
	expiry      time.Duration
	tokenLength int
	nowFunc     func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithTokenLength sets the number of random bytes per token (hex encoded on the wire).
func WithTokenLength(n int) ManagerOption {
	return func(m *Manager) {
		m.tokenLength = n
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, expiry time.Duration, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:        repo,
		expiry:      expiry,
		tokenLength: defaultTokenLength,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create issues a new refresh token for userID, replacing any previous one
// (single refresh token per user)
func (m *Manager) Create(userID string) (string, error) {
	if err := m.repo.DeleteByUserID(userID); err != nil {
		return "", errors.Wrap(err, "refresh.Manager.Create DeleteByUserID")
	}

	tokenBytes := make([]byte, m.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "refresh.Manager.Create rand.Read")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "refresh.Manager.Create Upsert")
	}

	return tokenStr, nil
}

// Get retrieves a refresh token from storage
func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// Revoke removes every refresh token held by userID
func (m *Manager) Revoke(userID string) error {
	return m.repo.DeleteByUserID(userID)
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.expiry
}
