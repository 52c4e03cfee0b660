// Package session implements the session token manager: an in-memory access
// token cache with proactive renewal, single-flight credential reads and
// refreshes, and logout with role-based redirect.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/navigation"
	"github.com/jrsteele09/go-session-client/refresh"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/token"
)

const (
	// DefaultCacheTTL bounds how long a token is served from memory before the store is read again.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultRefreshBuffer is how long before expiry a token is renewed.
	DefaultRefreshBuffer = time.Minute

	fetchKey   = "fetch"
	refreshKey = "refresh"
)

type cacheEntry struct {
	creds    credentials.Credentials
	cachedAt time.Time
}

// Manager owns the credentials of one actor. Client processes share one
// Manager; server-rendered requests each build their own with
// WithServerRendering so nothing is cached across requests.
type Manager struct {
	store           credentials.Store
	refresher       refresh.Refresher
	navigator       navigation.Navigator
	metrics         *metrics.Recorder
	cacheTTL        time.Duration
	refreshBuffer   time.Duration
	serverRendering bool
	nowFunc         func() time.Time

	mu         sync.Mutex // guards cache and generation
	cache      cacheEntry
	generation uint64

	// persistMu orders store writes against Clear so a refresh finishing
	// after a logout cannot resurrect the session.
	persistMu sync.Mutex

	flights singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithCacheTTL sets how long a token is served from memory. Defaults to DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.cacheTTL = ttl
	}
}

// WithRefreshBuffer sets how long before expiry a token is renewed. It must be smaller than the cache TTL.
func WithRefreshBuffer(buffer time.Duration) Option {
	return func(m *Manager) {
		m.refreshBuffer = buffer
	}
}

// WithNavigator sets where logout redirects go. Defaults to navigation.Discard.
func WithNavigator(nav navigation.Navigator) Option {
	return func(m *Manager) {
		m.navigator = nav
	}
}

// WithMetrics records cache, refresh and logout counters on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithNowFunc replaces the clock used for expiry and cache age checks.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithServerRendering disables the memory cache: every lookup reads the store.
func WithServerRendering() Option {
	return func(m *Manager) {
		m.serverRendering = true
	}
}

// New returns a Manager over store that renews tokens through refresher.
func New(store credentials.Store, refresher refresh.Refresher, options ...Option) (*Manager, error) {
	m := &Manager{
		store:         store,
		refresher:     refresher,
		navigator:     navigation.Discard,
		cacheTTL:      DefaultCacheTTL,
		refreshBuffer: DefaultRefreshBuffer,
		nowFunc:       time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	if store == nil || refresher == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "session.New: store and refresher are required")
	}
	if m.refreshBuffer < 0 || m.refreshBuffer >= m.cacheTTL {
		return nil, errors.Wrapf(errors.ErrInvalidConfig,
			"session.New: refresh buffer %s must be smaller than cache TTL %s", m.refreshBuffer, m.cacheTTL)
	}
	if m.navigator == nil {
		m.navigator = navigation.Discard
	}
	return m, nil
}

// GetCachedAuth returns credentials usable for the next request. It never
// returns a cached token that is expired or within the refresh buffer.
// A store failure degrades to the last still-valid token, or to empty credentials.
func (m *Manager) GetCachedAuth(ctx context.Context) (credentials.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return credentials.Credentials{}, err
	}

	if m.serverRendering {
		m.metrics.CacheLookup("bypass")
		creds, err := m.store.Read(ctx)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("session: credential store read failed")
			return credentials.Credentials{}, nil
		}
		return creds, nil
	}

	now := m.nowFunc()
	entry := m.cached()
	renewed := false

	if entry.creds.AccessToken != "" && now.Sub(entry.cachedAt) < m.cacheTTL {
		if !token.IsExpiredOrExpiring(entry.creds.AccessToken, m.refreshBuffer, now) {
			m.metrics.CacheLookup("hit")
			return entry.creds, nil
		}

		m.metrics.CacheLookup("expiring")
		creds, err := m.renew(ctx, entry.creds.AccessToken)
		if err == nil {
			return creds, nil
		}
		if errors.IsTerminal(err) {
			return credentials.Credentials{}, err
		}
		renewed = true
	} else {
		m.metrics.CacheLookup("miss")
	}

	creds, err := m.fetch(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("session: credential store read failed")
		if prev := entry.creds; prev.AccessToken != "" && !token.IsExpired(prev.AccessToken, now) {
			return prev, nil
		}
		return credentials.Credentials{}, nil
	}

	if !renewed && creds.AccessToken != "" && creds.RefreshToken != "" &&
		token.IsExpiredOrExpiring(creds.AccessToken, m.refreshBuffer, now) {
		fresh, err := m.renew(ctx, creds.AccessToken)
		if err == nil {
			return fresh, nil
		}
		if errors.IsTerminal(err) {
			return credentials.Credentials{}, err
		}
		if reread, err := m.store.Read(ctx); err == nil {
			creds = reread
		}
	}
	return creds, nil
}

// renew refreshes after stale was found expiring and returns the fresh pair.
// Terminal errors mean the session has already been ended.
func (m *Manager) renew(ctx context.Context, stale string) (credentials.Credentials, error) {
	access, err := m.refreshAfter(ctx, stale)
	if err != nil {
		return credentials.Credentials{}, err
	}
	entry := m.cached()
	if entry.creds.AccessToken == access {
		return entry.creds, nil
	}
	return credentials.Credentials{AccessToken: access}, nil
}

// fetch reads the store, coalescing concurrent cold-cache reads into one.
func (m *Manager) fetch(ctx context.Context) (credentials.Credentials, error) {
	gen := m.currentGeneration()
	v, err, _ := m.flights.Do(fetchKey, func() (any, error) {
		creds, err := m.store.Read(context.WithoutCancel(ctx))
		if err != nil {
			return credentials.Credentials{}, err
		}
		m.setCache(creds, gen)
		return creds, nil
	})
	if err != nil {
		return credentials.Credentials{}, err
	}
	return v.(credentials.Credentials), nil
}

// Login stores a freshly issued pair and seeds the cache. Lookups and
// refreshes still in flight for the previous session are discarded.
func (m *Manager) Login(ctx context.Context, accessToken, refreshToken string) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	gen := m.nextGeneration()
	if err := m.store.Write(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}
	m.setCache(credentials.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}, gen)
	return nil
}

// Clear forgets the credentials everywhere. Lookups and refreshes still in
// flight finish without repopulating anything.
func (m *Manager) Clear(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.nextGeneration()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("session.Clear: %w", err)
	}
	return nil
}

// Role returns the role of the current session: the token's claim when one
// can be decoded, otherwise the hint the router put on ctx, otherwise the
// prefix of the current location.
func (m *Manager) Role(ctx context.Context) roles.Role {
	access := m.cached().creds.AccessToken
	if access == "" {
		if creds, err := m.store.Read(ctx); err == nil {
			access = creds.AccessToken
		}
	}
	return m.roleOf(ctx, access)
}

func (m *Manager) roleOf(ctx context.Context, accessToken string) roles.Role {
	if claims, err := token.DecodeUnverified(accessToken); err == nil {
		if r := claims.PortalRole(); r != roles.Unknown {
			return r
		}
	}
	if r := roles.FromContext(ctx); r != roles.Unknown {
		return r
	}
	return roles.FromPath(navigation.Location(ctx))
}

// Logout ends the session and navigates to the role's login page.
func (m *Manager) Logout(ctx context.Context) error {
	return m.endSession(ctx, m.Role(ctx), "logout")
}

// EndSession is Logout for a reason detected outside the manager
// (invalid token, deactivated account). accessToken is the token the
// backend rejected and is used to pick the login page.
func (m *Manager) EndSession(ctx context.Context, accessToken, reason string) error {
	role := m.roleOf(ctx, accessToken)
	if role == roles.Unknown {
		role = m.Role(ctx)
	}
	return m.endSession(ctx, role, reason)
}

func (m *Manager) endSession(ctx context.Context, role roles.Role, reason string) error {
	log.Ctx(ctx).Info().Str("role", role.String()).Str("reason", reason).Msg("session: ending session")
	m.metrics.Logout(reason)

	clearErr := m.Clear(ctx)
	if clearErr != nil {
		log.Ctx(ctx).Error().Err(clearErr).Msg("session: failed to clear credentials")
	}
	if _, err := navigation.ToLogin(ctx, m.navigator, role); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("role", role.String()).Msg("session: login redirect failed")
		return err
	}
	return clearErr
}

func (m *Manager) cached() cacheEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache
}

// nextGeneration drops the cache and detaches in-flight lookups and
// refreshes so their results are never stored. Callers hold persistMu.
func (m *Manager) nextGeneration() uint64 {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.cache = cacheEntry{}
	m.mu.Unlock()

	m.flights.Forget(fetchKey)
	m.flights.Forget(refreshKey)
	return gen
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// setCache stores creds unless the session was cleared after gen was taken.
func (m *Manager) setCache(creds credentials.Credentials, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return false
	}
	if m.serverRendering || creds.AccessToken == "" {
		m.cache = cacheEntry{}
		return true
	}
	m.cache = cacheEntry{creds: creds, cachedAt: m.nowFunc()}
	return true
}
