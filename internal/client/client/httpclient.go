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
	"sync"
	"time"
)

// HTTPClient talks to the JSON API and holds the current token pair.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) error {
	var pair tokenPair
	err := c.do(ctx, http.MethodPost, "/login", "", map[string]string{"email": email, "password": password}, &pair)
	if err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// Logout ends the session. An access token the server no longer accepts is
// refreshed once before giving up. The local tokens are dropped either way.
func (c *HTTPClient) Logout(ctx context.Context) error {
	defer c.setTokens(tokenPair{})
	return c.withAccess(ctx, func(access string) error {
		return c.do(ctx, http.MethodGet, "/logout", access, nil, nil)
	})
}

func (c *HTTPClient) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	var pair tokenPair
	if err := c.do(ctx, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh}, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (string, error) {
	var out struct {
		ActivationToken string `json:"activation_token"`
	}
	err := c.withAccess(ctx, func(access string) error {
		return c.do(ctx, http.MethodPost, "/register", access,
			map[string]string{"name": name, "email": email, "password": password}, &out)
	})
	if err != nil {
		return "", err
	}
	return out.ActivationToken, nil
}

func (c *HTTPClient) Confirm(ctx context.Context, email, password, token string) error {
	return c.do(ctx, http.MethodPost, "/confirm", "",
		map[string]string{"email": email, "password": password, "token": token}, nil)
}

func (c *HTTPClient) LoggedIn() bool {
	access, _ := c.tokens()
	return access != ""
}

// withAccess runs call with the current access token and retries once after
// a refresh when the server answers 403.
func (c *HTTPClient) withAccess(ctx context.Context, call func(access string) error) error {
	access, _ := c.tokens()
	if access == "" {
		return ErrNotLoggedIn
	}

	err := call(access)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	access, _ = c.tokens()
	return call(access)
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) setTokens(p tokenPair) {
	c.mu.Lock()
	c.accessToken = p.AccessToken
	c.refreshToken = p.RefreshToken
	c.mu.Unlock()
}

func (c *HTTPClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: eb.Message, Fields: eb.Errors}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
