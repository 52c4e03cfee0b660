// Package cookiestore keeps credentials in encrypted, authenticated cookies
// for the duration of one server-rendered request.
package cookiestore

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/credentials"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	refreshCookieMaxAge = 7 * 24 * 3600 // matches the backend refresh token lifetime
)

// Codec encodes cookie values. It is shared by every request.
type Codec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewCodec builds a codec from a hash key and an optional block key (nil disables encryption)
func NewCodec(hashKey, blockKey []byte, secure bool) *Codec {
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(refreshCookieMaxAge)
	return &Codec{sc: sc, secure: secure}
}

// Store is bound to one request/response pair. Writes are visible to later
// Reads in the same request immediately, before the browser sends them back.
type Store struct {
	codec *Codec
	w     http.ResponseWriter
	r     *http.Request

	mu      sync.Mutex
	pending *credentials.Credentials
}

var _ credentials.Store = (*Store)(nil)

func (c *Codec) ForRequest(w http.ResponseWriter, r *http.Request) *Store {
	return &Store{codec: c, w: w, r: r}
}

func (s *Store) Read(_ context.Context) (credentials.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return *s.pending, nil
	}
	return credentials.Credentials{
		AccessToken:  s.decode(AccessTokenCookie),
		RefreshToken: s.decode(RefreshTokenCookie),
	}, nil
}

func (s *Store) decode(name string) string {
	cookie, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}
	var value string
	if err := s.codec.sc.Decode(name, cookie.Value, &value); err != nil {
		log.Debug().Err(err).Str("cookie", name).Msg("ignoring undecodable credential cookie")
		return ""
	}
	return value
}

func (s *Store) Write(_ context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.set(AccessTokenCookie, accessToken, 0); err != nil {
		return err
	}
	if err := s.set(RefreshTokenCookie, refreshToken, refreshCookieMaxAge); err != nil {
		return err
	}
	s.pending = &credentials.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}
	return nil
}

func (s *Store) set(name, value string, maxAge int) error {
	encoded, err := s.codec.sc.Encode(name, value)
	if err != nil {
		return err
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.codec.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(s.w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   s.codec.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	s.pending = &credentials.Credentials{}
	return nil
}
