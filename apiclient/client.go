// Package apiclient is a small JSON client for the telehealth REST backend.
// Responses are expected in the {"data": ...} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/payload"
	"github.com/jrsteele09/go-session-client/transport"
)

const maxResponseBytes = 4 << 20

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of err if it is an *APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. httpClient normally comes from
// transport.NewClient so requests carry the session's bearer.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type callOptions struct {
	skipAuth bool
	header   http.Header
}

type CallOption func(*callOptions)

// WithoutAuth sends the call without a bearer and without auth recovery.
func WithoutAuth() CallOption {
	return func(o *callOptions) {
		o.skipAuth = true
	}
}

func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Add(key, value)
	}
}

// Do sends in as JSON (when non-nil) and decodes the response's data field into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out any, options ...CallOption) error {
	var opts callOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.skipAuth {
		ctx = transport.WithSkipAuth(ctx)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apiclient: encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range opts.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("apiclient: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  resp.StatusCode,
			Message: payload.Message(raw),
			Code:    payload.Code(raw),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	data := raw
	if env := gjson.GetBytes(raw, "data"); env.Exists() {
		data = []byte(env.Raw)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any, options ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, options...)
}

func (c *Client) Post(ctx context.Context, path string, in, out any, options ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, in, out, options...)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any, options ...CallOption) error {
	return c.Do(ctx, http.MethodPatch, path, in, out, options...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, options ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, options...)
}
