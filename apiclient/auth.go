package apiclient

import (
	"context"

	"github.com/jrsteele09/go-session-client/roles"
)

// Auth endpoint paths on the backend.
const (
	LoginPath   = "/auth/login"
	MePath      = "/auth/me"
	LogoutPath  = "/auth/logout"
	RefreshPath = "/auth/refresh-token"
)

type User struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  roles.Role `json:"role"`
	Name  string     `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Login exchanges a password for a token pair. It never carries a bearer.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	if err := c.Post(ctx, LoginPath, LoginRequest{Email: email, Password: password}, &out, WithoutAuth()); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account behind the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.Get(ctx, MePath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes refreshToken on the backend. A 401 here is expected when
// the session is already gone.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.Post(ctx, LogoutPath, map[string]string{"refreshToken": refreshToken}, nil)
}
