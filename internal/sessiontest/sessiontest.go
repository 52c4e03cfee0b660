// Package sessiontest provides token minting and a scriptable Refresher for
// tests across the session packages.
package sessiontest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/token"
)

const Secret = "sessiontest-secret"

// Token mints an HS256 access token for role expiring ttl from now.
// Every call returns a distinct token.
func Token(role roles.Role, ttl time.Duration) string {
	now := time.Now()
	raw, err := token.NewHMACSigner(Secret).Sign(&token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "user-" + role.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role.String(),
	})
	if err != nil {
		panic(err)
	}
	return raw
}

// Refresher issues fresh tokens for Role, or fails with Err when set.
// When Gate is non-nil each call signals Entered and blocks until Gate is closed.
type Refresher struct {
	Role    roles.Role
	TTL     time.Duration
	Rotate  bool
	Entered chan struct{}
	Gate    chan struct{}

	mu    sync.Mutex
	err   error
	calls atomic.Int32
	seen  []string
}

func NewRefresher(role roles.Role) *Refresher {
	return &Refresher{Role: role, TTL: 15 * time.Minute}
}

func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (credentials.Credentials, error) {
	r.calls.Add(1)

	r.mu.Lock()
	r.seen = append(r.seen, refreshToken)
	err := r.err
	r.mu.Unlock()

	if r.Gate != nil {
		if r.Entered != nil {
			select {
			case r.Entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return credentials.Credentials{}, ctx.Err()
		}
	}

	if err != nil {
		return credentials.Credentials{}, err
	}

	creds := credentials.Credentials{AccessToken: Token(r.Role, r.TTL)}
	if r.Rotate {
		creds.RefreshToken = "refresh-" + uuid.NewString()
	}
	return creds, nil
}

// Fail makes subsequent calls return err. Nil restores success.
func (r *Refresher) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Refresher) Calls() int {
	return int(r.calls.Load())
}

// Seen returns the refresh tokens presented so far.
func (r *Refresher) Seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

// Store wraps a MemoryStore, counting reads and optionally failing them.
type Store struct {
	*credentials.MemoryStore
	reads    atomic.Int32
	failRead atomic.Bool
	ReadGate chan struct{}
}

func NewStore(access, refresh string) *Store {
	return &Store{MemoryStore: credentials.NewMemoryStore(credentials.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
	})}
}

func (s *Store) Read(ctx context.Context) (credentials.Credentials, error) {
	s.reads.Add(1)
	if s.ReadGate != nil {
		<-s.ReadGate
	}
	if s.failRead.Load() {
		return credentials.Credentials{}, ErrStoreUnavailable
	}
	return s.MemoryStore.Read(ctx)
}

func (s *Store) Reads() int {
	return int(s.reads.Load())
}

func (s *Store) FailReads(fail bool) {
	s.failRead.Store(fail)
}

// Navigator records navigations.
type Navigator struct {
	mu      sync.Mutex
	visited []string
}

func (n *Navigator) Navigate(_ context.Context, to string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visited = append(n.visited, to)
	return nil
}

func (n *Navigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}
