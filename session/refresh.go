package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/refresh"
	"github.com/jrsteele09/go-session-client/token"
)

// Refresh exchanges the stored refresh token for a new access token.
// Concurrent callers share one call to the refresh endpoint and see the same
// result. The refresh is not cancelled when the caller that started it
// gives up, since other callers may be waiting on it.
//
// Terminal failures (expired or invalid refresh token) clear the session and
// navigate to the login page before returning. Transient failures keep the
// credentials and return an error matching errors.ErrTransientRefresh.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.refreshAfter(ctx, "")
}

// RefreshAfter is Refresh for a caller whose request was rejected with
// stale. If another caller has already replaced stale with a usable token,
// that token is returned without calling the endpoint again.
func (m *Manager) RefreshAfter(ctx context.Context, stale string) (string, error) {
	return m.refreshAfter(ctx, stale)
}

func (m *Manager) refreshAfter(ctx context.Context, stale string) (string, error) {
	v, err, shared := m.flights.Do(refreshKey, func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx), stale)
	})
	if shared {
		log.Ctx(ctx).Debug().Msg("session: joined in-flight refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context, stale string) (string, error) {
	gen := m.currentGeneration()

	creds, err := m.store.Read(ctx)
	if err != nil {
		m.metrics.Refresh(refresh.Transient.String())
		return "", fmt.Errorf("%w: reading credentials: %w", errors.ErrTransientRefresh, err)
	}

	if stale != "" && creds.AccessToken != "" && creds.AccessToken != stale &&
		!token.IsExpiredOrExpiring(creds.AccessToken, m.refreshBuffer, m.nowFunc()) {
		m.setCache(creds, gen)
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		m.metrics.Refresh("no_refresh_token")
		return "", errors.ErrNoRefreshToken
	}

	issued, err := m.refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", m.refreshFailed(ctx, creds.AccessToken, err)
	}

	if issued.RefreshToken == "" {
		issued.RefreshToken = creds.RefreshToken
	}

	if err := m.persist(ctx, issued, gen); err != nil {
		return "", err
	}

	m.metrics.Refresh("success")
	log.Ctx(ctx).Debug().Msg("session: access token refreshed")
	return issued.AccessToken, nil
}

// persist writes the refreshed pair unless the session ended meanwhile.
func (m *Manager) persist(ctx context.Context, issued credentials.Credentials, gen uint64) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if gen != m.currentGeneration() {
		log.Ctx(ctx).Debug().Msg("session: discarding refresh that completed after logout")
		return errors.ErrNoCredentials
	}

	if err := m.store.Write(ctx, issued.AccessToken, issued.RefreshToken); err != nil {
		// The new pair is still valid for this process; a later cold read
		// will pick up the old pair and refresh again.
		log.Ctx(ctx).Error().Err(err).Msg("session: failed to persist refreshed credentials")
	}
	m.setCache(issued, gen)
	return nil
}

func (m *Manager) refreshFailed(ctx context.Context, accessToken string, err error) error {
	outcome := refresh.OutcomeOf(err)
	m.metrics.Refresh(outcome.String())

	if !outcome.Terminal() {
		log.Ctx(ctx).Warn().Err(err).Msg("session: refresh failed, keeping credentials")
		if !errors.Is(err, errors.ErrTransientRefresh) {
			err = fmt.Errorf("%w: %w", errors.ErrTransientRefresh, err)
		}
		return err
	}

	log.Ctx(ctx).Warn().Err(err).Str("outcome", outcome.String()).Msg("session: refresh token rejected")
	role := m.roleOf(ctx, accessToken)
	if navErr := m.endSession(ctx, role, "refresh_"+outcome.String()); navErr != nil {
		log.Ctx(ctx).Error().Err(navErr).Msg("session: failed to end session after refresh rejection")
	}
	return err
}
