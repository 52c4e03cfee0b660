// Package filestore keeps credentials in a JSON file, one file per API base URL.
package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/credentials"
)

// Store writes through natefinch/atomic so a concurrent Read sees either the
// old or the new file, never a partial one.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ credentials.Store = (*Store)(nil)

// New returns a store for serverURL under dir
func New(dir, serverURL string) *Store {
	return &Store{path: credentialPath(dir, serverURL)}
}

func credentialPath(dir, serverURL string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(serverURL))
	id := hex.EncodeToString(h.Sum(nil))
	return filepath.Join(dir, "credentials", id+".json")
}

// Path is the file backing the store
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Read(_ context.Context) (credentials.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return credentials.Credentials{}, nil
	}
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("read credential file: %w", err)
	}

	var creds credentials.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("discarding unreadable credential file")
		_ = os.Remove(s.path)
		return credentials.Credentials{}, nil
	}
	return creds, nil
}

func (s *Store) Write(_ context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	data, err := json.Marshal(credentials.Credentials{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
