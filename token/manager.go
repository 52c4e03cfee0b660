package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token/refresh"
	"github.com/jrsteele09/go-session-client/users"
)

// Pair is what the backend hands out on login and refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Manager issues and checks tokens for the development backend. Client code
// never uses it: clients only decode (see DecodeUnverified).
type Manager struct {
	signer            Signer
	refresh           *refresh.Manager
	userRepo          users.UserRepo
	revocations       Revocations
	issuer            string
	accessTokenExpiry time.Duration
	rotateRefresh     bool
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// WithRevocations replaces the in-memory revocation list.
func WithRevocations(r Revocations) ManagerOption {
	return func(m *Manager) {
		m.revocations = r
	}
}

// WithRefreshRotation makes Refresh issue a new refresh token each time.
// By default the refresh token is kept and only the access token is renewed.
func WithRefreshRotation() ManagerOption {
	return func(m *Manager) {
		m.rotateRefresh = true
	}
}

func NewManager(refreshManager *refresh.Manager, userRepo users.UserRepo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:            signer,
		refresh:           refreshManager,
		userRepo:          userRepo,
		accessTokenExpiry: 15 * time.Minute,
		issuer:            "telehealth-devapi",
		nowFunc:           time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.revocations == nil {
		m.revocations = NewMemoryRevocations(m.nowFunc)
	}
	return m
}

func (m *Manager) CreateAccessToken(user *users.User) (string, error) {
	now := m.nowFunc()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
		Role:  user.Role.String(),
		Email: user.Email,
	}
	return m.signer.Sign(claims)
}

// Login checks the password and issues a fresh pair.
func (m *Manager) Login(email, password string) (*Pair, *users.User, error) {
	user, err := m.userRepo.GetByEmail(strings.TrimSpace(email))
	if err != nil || !user.CheckPassword(password) {
		return nil, nil, sessionerrors.ErrInvalidCredentials
	}
	if user.Deactivated {
		return nil, nil, sessionerrors.ErrAccountDeactivated
	}

	accessToken, err := m.CreateAccessToken(user)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Manager.Login CreateAccessToken")
	}
	refreshToken, err := m.refresh.Create(user.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Manager.Login CreateRefreshToken")
	}
	_ = m.userRepo.SetLastLogin(user.ID)

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, user, nil
}

// Refresh exchanges a refresh token for a new access token. It returns
// ErrInvalidRefreshToken for unknown tokens, ErrRefreshTokenExpired for old
// ones (which are deleted) and ErrAccountDeactivated for disabled accounts.
func (m *Manager) Refresh(refreshToken string) (*Pair, error) {
	rt, err := m.refresh.Get(refreshToken)
	if err != nil {
		return nil, sessionerrors.ErrInvalidRefreshToken
	}

	if m.refresh.IsExpired(rt) {
		_ = m.refresh.Delete(refreshToken)
		return nil, sessionerrors.ErrRefreshTokenExpired
	}

	user, err := m.userRepo.GetByID(rt.UserID)
	if err != nil {
		return nil, sessionerrors.ErrInvalidRefreshToken
	}
	if user.Deactivated {
		return nil, sessionerrors.ErrAccountDeactivated
	}

	accessToken, err := m.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Refresh CreateAccessToken")
	}

	pair := &Pair{AccessToken: accessToken}
	if m.rotateRefresh {
		if pair.RefreshToken, err = m.refresh.Create(user.ID); err != nil {
			return nil, errors.Wrap(err, "Manager.Refresh rotate")
		}
	}
	return pair, nil
}

// Authenticate verifies a bearer token and loads its user. Errors map onto
// the backend's 401/403 responses: ErrTokenInvalid, ErrTokenExpired and
// ErrAccountDeactivated.
func (m *Manager) Authenticate(rawToken string) (*users.User, *Claims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, nil, sessionerrors.ErrTokenInvalid
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, nil, sessionerrors.ErrTokenExpired
	case err != nil:
		return nil, nil, sessionerrors.ErrTokenInvalid
	}

	if claims.ID != "" && m.revocations.Revoked(claims.ID) {
		return nil, nil, sessionerrors.ErrTokenInvalid
	}

	user, err := m.userRepo.GetByID(claims.Subject)
	if err != nil {
		return nil, nil, sessionerrors.ErrTokenInvalid
	}
	if user.Deactivated {
		return nil, nil, sessionerrors.ErrAccountDeactivated
	}
	return user, claims, nil
}

// Logout revokes the access token's jti and deletes the refresh token.
// Either may be empty.
func (m *Manager) Logout(claims *Claims, refreshToken string) {
	if claims != nil {
		m.revocations.Revoke(claims.ID, claims.Expiry())
	}
	if refreshToken != "" {
		_ = m.refresh.Delete(refreshToken)
	}
}

// Deactivate disables an account and revokes its refresh token. Access
// tokens already issued fail Authenticate from now on.
func (m *Manager) Deactivate(userID string) error {
	if err := m.userRepo.SetDeactivated(userID, true); err != nil {
		return err
	}
	return m.refresh.Revoke(userID)
}
