// SPDX-License-Identifier: MIT

// Package client implements the daemon's counterpart for terminals: a REST
// client, a reconciling session cache, an event stream subscriber and the
// notification dispatcher. The server is always authoritative; everything
// here exists to mirror it faithfully.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/breaks"
)

// NetworkError wraps transport failures so callers can distinguish "the
// server said no" from "the server was unreachable". Cached state stays
// valid across network errors.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Client is the REST client for the workpulse API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a client for the API at baseURL. Requests are traced through
// the otelhttp transport.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token.
func (c *Client) Token() string { return c.token }

// BaseURL returns the configured server address.
func (c *Client) BaseURL() string { return c.baseURL }

// LoginResult is the login response payload.
type LoginResult struct {
	Token string      `json:"token"`
	User  breaks.User `json:"user"`
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.call(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	c.token = out.Token
	return out, nil
}

// Logout revokes the client's token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (breaks.User, error) {
	var out breaks.User
	err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

// ChangePassword rotates the password and installs the fresh token.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	var out map[string]string
	err := c.call(ctx, http.MethodPost, "/api/auth/password",
		map[string]string{"currentPassword": current, "newPassword": next}, &out)
	if err != nil {
		return err
	}
	if token := out["token"]; token != "" {
		c.token = token
	}
	return nil
}

// StartBreak opens a break session of the given type.
func (c *Client) StartBreak(ctx context.Context, breakTypeID int64) (breaks.Session, error) {
	var out breaks.Session
	err := c.call(ctx, http.MethodPost, "/api/breaks/start",
		map[string]int64{"breakTypeId": breakTypeID}, &out)
	return out, err
}

// EndBreak closes the caller's ongoing session.
func (c *Client) EndBreak(ctx context.Context) (breaks.Session, error) {
	var out breaks.Session
	err := c.call(ctx, http.MethodPost, "/api/breaks/end", nil, &out)
	return out, err
}

// ActiveBreak returns the caller's ongoing session, or ErrNotFound.
func (c *Client) ActiveBreak(ctx context.Context) (breaks.Session, error) {
	var out breaks.Session
	err := c.call(ctx, http.MethodGet, "/api/breaks/active", nil, &out)
	return out, err
}

// History returns the caller's sessions, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]breaks.Session, error) {
	path := "/api/breaks/history"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []breaks.Session
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// HistoryAll returns sessions across all users (manager scope).
func (c *Client) HistoryAll(ctx context.Context, limit int) ([]breaks.SessionWithUser, error) {
	path := "/api/breaks/history/all"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []breaks.SessionWithUser
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// BreakTypes lists the break types visible to the caller.
func (c *Client) BreakTypes(ctx context.Context) ([]breaks.BreakType, error) {
	var out []breaks.BreakType
	err := c.call(ctx, http.MethodGet, "/api/break-types", nil, &out)
	return out, err
}

// Users returns the manager live feed payload.
func (c *Client) Users(ctx context.Context) ([]breaks.User, error) {
	var out []breaks.User
	err := c.call(ctx, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

// call performs one JSON round trip and maps error responses back onto the
// domain error values, so client code branches on the same sentinels the
// server used.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	detail := payload.Error
	if detail == "" {
		detail = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", detail, auth.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", detail, breaks.ErrForbidden)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", detail, breaks.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", detail, breaks.ErrConflict)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", detail, breaks.ErrInvalidState)
	default:
		return fmt.Errorf("server error %d: %s", resp.StatusCode, detail)
	}
}
