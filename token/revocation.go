package token

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Revocations remembers logged-out access tokens by jti. An entry only
// matters until the token it names would have expired anyway.
type Revocations interface {
	Revoke(jti string, until time.Time)
	Revoked(jti string) bool
	// Prune drops entries whose token has expired and returns how many went.
	Prune() int
}

type memoryRevocations struct {
	mu      sync.RWMutex
	until   map[string]time.Time
	nowFunc func() time.Time
}

func NewMemoryRevocations(now func() time.Time) Revocations {
	if now == nil {
		now = time.Now
	}
	return &memoryRevocations{
		until:   make(map[string]time.Time),
		nowFunc: now,
	}
}

// Revoke records jti. A zero until keeps it until the process exits.
func (r *memoryRevocations) Revoke(jti string, until time.Time) {
	if jti == "" {
		return
	}
	r.mu.Lock()
	r.until[jti] = until
	r.mu.Unlock()
}

func (r *memoryRevocations) Revoked(jti string) bool {
	r.mu.RLock()
	until, ok := r.until[jti]
	r.mu.RUnlock()
	return ok && (until.IsZero() || r.nowFunc().Before(until))
}

func (r *memoryRevocations) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFunc()
	pruned := 0
	for jti, until := range r.until {
		if !until.IsZero() && !now.Before(until) {
			delete(r.until, jti)
			pruned++
		}
	}
	return pruned
}

// RunRevocationPruner prunes expired revocations every interval until ctx is
// done.
func (m *Manager) RunRevocationPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.PruneRevocations(); n > 0 {
				log.Ctx(ctx).Debug().Int("pruned", n).Msg("token: pruned expired revocations")
			}
		}
	}
}

// PruneRevocations drops revocations for tokens that have expired.
func (m *Manager) PruneRevocations() int {
	return m.revocations.Prune()
}
