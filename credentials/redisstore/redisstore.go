// Package redisstore keeps credentials in Redis, keyed by a device or browser session id.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/credentials"
)

const keyPrefix = "session:credentials:"

// Store is a credentials.Store for one session id. The pair is stored as a
// single JSON value so a Write replaces both tokens in one SET.
type Store struct {
	client    redis.Cmdable
	sessionID string
	ttl       time.Duration
}

var _ credentials.Store = (*Store)(nil)

// NewClient connects to addr and pings it, following the same fail-fast approach as the other services
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// New returns a store for sessionID. ttl bounds how long an idle session survives (0 = no expiry).
func New(client redis.Cmdable, sessionID string, ttl time.Duration) *Store {
	return &Store{client: client, sessionID: sessionID, ttl: ttl}
}

func (s *Store) key() string {
	return keyPrefix + s.sessionID
}

func (s *Store) Read(ctx context.Context) (credentials.Credentials, error) {
	val, err := s.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return credentials.Credentials{}, nil
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("key", s.key()).
			Msg("Redis GET for credentials failed")
		return credentials.Credentials{}, err
	}

	var creds credentials.Credentials
	if err := json.Unmarshal([]byte(val), &creds); err != nil {
		return credentials.Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

func (s *Store) Write(ctx context.Context, accessToken, refreshToken string) error {
	data, err := json.Marshal(credentials.Credentials{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		log.Error().
			Err(err).
			Str("key", s.key()).
			Dur("expiration", s.ttl).
			Msg("Redis SET for credentials failed")
		return err
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		log.Error().
			Err(err).
			Str("key", s.key()).
			Msg("Redis DEL for credentials failed")
		return err
	}
	return nil
}
