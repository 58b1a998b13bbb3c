// Package users layers session-token authentication on top of the core
// MCP client: login, token refresh, and expiry checks.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediactl/mcp-go/mcp"
)

// User identifies the authenticated account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Session holds the tokens issued at login.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Client performs user and session operations through the core client.
// It is safe for concurrent use.
type Client struct {
	core *mcp.Client

	mu      sync.Mutex
	session *Session
}

// NewClient wraps the core client.
func NewClient(core *mcp.Client) *Client {
	return &Client{core: core}
}

// Session returns a copy of the current session, or nil before login.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Login authenticates and stores the resulting session. rememberMe
// asks the server for a long-lived refresh token.
func (c *Client) Login(ctx context.Context, username, password string, rememberMe bool) (*Session, error) {
	resp, err := c.core.SendRaw(ctx, map[string]any{
		"operation": "login",
		"data": map[string]any{
			"username":    username,
			"password":    password,
			"remember_me": rememberMe,
		},
	})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := resp.Decode(&session); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()

	s := session
	return &s, nil
}

// Logout invalidates the current session server-side and forgets it
// locally. A nil session is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}

	_, err := c.core.SendRaw(ctx, map[string]any{
		"operation":  "logout",
		"session_id": session.ID,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return nil
}

// Refresh exchanges the refresh token for new session tokens. Without
// an active session or refresh token it fails with an
// AuthenticationError.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil || session.RefreshToken == "" {
		return nil, &mcp.AuthenticationError{
			APIError: mcp.APIError{Message: "no refreshable session"},
		}
	}

	resp, err := c.core.SendRaw(ctx, map[string]any{
		"operation": "refresh_token",
		"data": map[string]any{
			"refresh_token": session.RefreshToken,
		},
	})
	if err != nil {
		return nil, err
	}

	var refreshed struct {
		Token        string    `json:"token"`
		RefreshToken string    `json:"refresh_token"`
		ExpiresAt    time.Time `json:"expires_at"`
	}
	if err := resp.Decode(&refreshed); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session.AccessToken = refreshed.Token
	if refreshed.RefreshToken != "" {
		c.session.RefreshToken = refreshed.RefreshToken
	}
	c.session.ExpiresAt = refreshed.ExpiresAt
	updated := *c.session
	c.mu.Unlock()

	return &updated, nil
}

// Expired reports whether the current session's access token has
// passed its expiry. The JWT is parsed without signature verification;
// verifying signatures is the server's job, the client only needs the
// exp claim. No session counts as expired.
func (c *Client) Expired() bool {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return true
	}
	if !session.ExpiresAt.IsZero() {
		return time.Now().After(session.ExpiresAt)
	}
	return tokenExpired(session.AccessToken)
}

// tokenExpired reads the exp claim from an unverified JWT. Tokens that
// cannot be parsed, or carry no expiry, are treated as expired.
func tokenExpired(token string) bool {
	if token == "" {
		return true
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Now().After(exp.Time)
}
