package devapi

import (
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-session-client/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-session-client/users/repofake"
)

// Options tweak the in-memory backend built by Bootstrap.
type Options struct {
	NowFunc       func() time.Time
	RotateRefresh bool
}

// Bootstrap builds a backend on in-memory repositories seeded with one
// account per role (see SeedEmail and SeedPassword).
func Bootstrap(cfg config.Config, opts Options) (*Server, error) {
	now := opts.NowFunc
	if now == nil {
		now = time.Now
	}

	userRepo := fakeuserrepo.NewFakeUserRepo()
	if _, err := Seed(userRepo); err != nil {
		return nil, err
	}

	refreshManager := refresh.NewManager(
		refreshrepofake.NewFakeRefreshTokenRepo(),
		cfg.GetDevAPIRefreshTokenExpiry(),
		refresh.WithNowFunc(now),
	)

	tokenOptions := []token.ManagerOption{
		token.WithAccessTokenExpiry(cfg.GetDevAPIAccessTokenExpiry()),
		token.WithNowFunc(now),
	}
	if opts.RotateRefresh {
		tokenOptions = append(tokenOptions, token.WithRefreshRotation())
	}
	tokens := token.NewManager(refreshManager, userRepo, token.NewHMACSigner(cfg.GetDevAPISecret()), tokenOptions...)

	return New(cfg, tokens, userRepo), nil
}
