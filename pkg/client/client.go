// Package client is a Go client for the TalkWire API. It mirrors the browser
// client's behavior: a cookie-carried session, an auth store with loading flags,
// and a realtime socket authenticated by the same cookie.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	authmodel "talkwire/internal/auth/domain/model"
)

// AuthStore is the client-side session state. IsCheckingAuth starts true and is
// cleared exactly once by CheckAuth on every outcome, so a UI gating on it can
// never hang. AuthUser stays nil until a check or login succeeds.
type AuthStore struct {
	AuthUser          *authmodel.User
	IsSigningUp       bool
	IsLoggingIn       bool
	IsUpdatingProfile bool
	IsCheckingAuth    bool
}

// APIError is a structured error response from the server
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Code       string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Code, e.StatusCode)
}

// SignupParams are the fields accepted by signup
type SignupParams struct {
	Handle    string `json:"handle"`
	Password  string `json:"password"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// LoginParams are the fields accepted by login
type LoginParams struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// ProfileParams are the mutable profile fields
type ProfileParams struct {
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Client talks to a TalkWire server. The embedded cookie jar carries the session
// credential across requests and into the realtime upgrade.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.Mutex
	store AuthStore
}

// New creates a client for the given base URL, e.g. "http://localhost:8000".
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar},
		store:   AuthStore{IsCheckingAuth: true},
	}, nil
}

// Store returns a snapshot of the auth store.
func (c *Client) Store() AuthStore {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

func (c *Client) setStore(mutate func(*AuthStore)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mutate(&c.store)
}

// CheckAuth performs the startup session probe. Whatever happens - success, a 401,
// or a transport failure - IsCheckingAuth is cleared before returning.
func (c *Client) CheckAuth(ctx context.Context) (*authmodel.User, error) {
	defer c.setStore(func(s *AuthStore) { s.IsCheckingAuth = false })

	var user authmodel.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/check", nil, &user); err != nil {
		c.setStore(func(s *AuthStore) { s.AuthUser = nil })
		return nil, err
	}

	c.setStore(func(s *AuthStore) { s.AuthUser = &user })
	return &user, nil
}

// Signup registers a new account and stores the issued session cookie.
func (c *Client) Signup(ctx context.Context, params SignupParams) (*authmodel.User, error) {
	c.setStore(func(s *AuthStore) { s.IsSigningUp = true })
	defer c.setStore(func(s *AuthStore) { s.IsSigningUp = false })

	var user authmodel.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", params, &user); err != nil {
		return nil, err
	}

	c.setStore(func(s *AuthStore) { s.AuthUser = &user })
	return &user, nil
}

// Login authenticates and stores the issued session cookie.
func (c *Client) Login(ctx context.Context, params LoginParams) (*authmodel.User, error) {
	c.setStore(func(s *AuthStore) { s.IsLoggingIn = true })
	defer c.setStore(func(s *AuthStore) { s.IsLoggingIn = false })

	var user authmodel.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", params, &user); err != nil {
		return nil, err
	}

	c.setStore(func(s *AuthStore) { s.AuthUser = &user })
	return &user, nil
}

// Logout revokes the current session. Safe to call without one.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setStore(func(s *AuthStore) { s.AuthUser = nil })
	return err
}

// UpdateProfile updates the caller's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, params ProfileParams) (*authmodel.User, error) {
	c.setStore(func(s *AuthStore) { s.IsUpdatingProfile = true })
	defer c.setStore(func(s *AuthStore) { s.IsUpdatingProfile = false })

	var user authmodel.User
	if err := c.doJSON(ctx, http.MethodPut, "/api/auth/profile", params, &user); err != nil {
		return nil, err
	}

	c.setStore(func(s *AuthStore) { s.AuthUser = &user })
	return &user, nil
}

// doJSON performs one JSON round trip and decodes either the payload or a
// structured API error.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
