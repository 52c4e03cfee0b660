// Package refresh talks to the backend refresh endpoint and classifies its failures.
package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-client/credentials"
)

const maxBodyBytes = 1 << 20

// Request is the refresh endpoint body.
type Request struct {
	RefreshToken string `json:"refreshToken"`
}

// Response is the success envelope. RefreshToken is only set when the backend rotates it.
type Response struct {
	Data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken,omitempty"`
	} `json:"data"`
}

// Refresher exchanges a refresh token for new credentials.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (credentials.Credentials, error)
}

// Client calls POST {baseURL}{path}. The http.Client must not carry the auth interceptor.
type Client struct {
	httpClient *http.Client
	url        string
}

var _ Refresher = (*Client)(nil)

func NewClient(baseURL, path string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		url:        strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/"),
	}
}

// URL is the refresh endpoint
func (c *Client) URL() string {
	return c.url
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (credentials.Credentials, error) {
	body, err := json.Marshal(Request{RefreshToken: refreshToken})
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return credentials.Credentials{}, &Error{Outcome: Transient, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return credentials.Credentials{}, &Error{Status: res.StatusCode, Outcome: Transient, Err: err}
	}

	if res.StatusCode/100 != 2 {
		return credentials.Credentials{}, newError(res.StatusCode, data)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil || out.Data.AccessToken == "" {
		return credentials.Credentials{}, &Error{
			Status:  res.StatusCode,
			Message: "refresh response did not contain an access token",
			Outcome: Transient,
		}
	}

	return credentials.Credentials{
		AccessToken:  out.Data.AccessToken,
		RefreshToken: out.Data.RefreshToken,
	}, nil
}
