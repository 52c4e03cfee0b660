package session

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token"
)

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

// TokenSource adapts the manager to oauth2.TokenSource so it can back an
// oauth2.Transport. Each Token call goes through GetCachedAuth.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	creds, err := ts.m.GetCachedAuth(ts.ctx)
	if err != nil {
		return nil, err
	}
	if creds.AccessToken == "" {
		return nil, errors.ErrNoCredentials
	}

	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	if claims, err := token.DecodeUnverified(creds.AccessToken); err == nil {
		tok.Expiry = claims.Expiry()
	}
	return tok, nil
}
