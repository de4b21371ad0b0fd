// Package auth is a small client for a GoTrue-style authentication API and
// the cookies that carry its session.
package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/speciesdex/pkg/logger"
)

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the result of a code exchange.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Client calls the auth endpoints of the hosted service.
type Client struct {
	base    *url.URL
	anonKey string
	http    *http.Client
	logger  logger.Logger
}

// NewClient creates a Client. A nil httpClient gets a default with a timeout.
func NewClient(baseURL, anonKey string, httpClient *http.Client, l logger.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrAuthRequest, baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Client{base: u, anonKey: anonKey, http: httpClient, logger: l.Named("auth")}, nil
}

// NewVerifier returns a random PKCE code verifier.
func NewVerifier() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// Challenge derives the S256 code challenge of verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuthorizeURL is where the browser is sent to sign in with provider.
func (c *Client) AuthorizeURL(provider, redirectTo, challenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "s256")
	return c.base.ResolveReference(&url.URL{Path: "auth/v1/authorize", RawQuery: q.Encode()}).String()
}

// ExchangeCode trades an authorization code for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (Session, error) {
	body, _ := json.Marshal(map[string]string{"auth_code": code, "code_verifier": verifier})
	var s Session
	status, err := c.call(ctx, http.MethodPost, "auth/v1/token", url.Values{"grant_type": {"pkce"}}, "", body, &s)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrExchange, err)
	}
	if status/100 != 2 || s.AccessToken == "" {
		return Session{}, fmt.Errorf("%w: status %d", ErrExchange, status)
	}
	return s, nil
}

// GetUser returns the user of accessToken, or ErrUnauthorized.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	var u User
	status, err := c.call(ctx, http.MethodGet, "auth/v1/user", nil, accessToken, nil, &u)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, ErrUnauthorized
	case status/100 != 2:
		return nil, fmt.Errorf("%w: get user: status %d", ErrAuthRequest, status)
	case u.ID == "":
		return nil, ErrUnauthorized
	}
	return &u, nil
}

// SignOut revokes the session of accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	status, err := c.call(ctx, http.MethodPost, "auth/v1/logout", nil, accessToken, nil, nil)
	if err != nil {
		return err
	}
	if status/100 != 2 && status != http.StatusUnauthorized {
		return fmt.Errorf("%w: logout: status %d", ErrAuthRequest, status)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, q url.Values, token string, body []byte, out any) (int, error) {
	u := c.base.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()})
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAuthRequest, err)
	}
	req.Header.Set("apikey", c.anonKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", ErrAuthRequest, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 || out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if resp.StatusCode/100 != 2 {
			c.logger.Debug(ctx, "auth endpoint rejected request",
				logger.String("path", path),
				logger.Int("status", resp.StatusCode),
			)
		}
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode %s: %w", ErrAuthRequest, path, err)
	}
	return resp.StatusCode, nil
}
