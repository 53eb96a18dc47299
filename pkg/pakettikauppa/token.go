package pakettikauppa

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTokenLifetime is assumed for tokens issued without expires_in.
const DefaultTokenLifetime = time.Hour

// tokenExpirySkew refreshes tokens slightly before they expire.
const tokenExpirySkew = 60 * time.Second

const tokenPath = "/oauth/token?grant_type=client_credentials"

// Token is an OAuth bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresIn   int64     `json:"expires_in,omitempty"`
	ObtainedAt  time.Time `json:"-"`
}

// ExpiresAt returns when the token stops being reused.
func (t *Token) ExpiresAt() time.Time {
	lifetime := DefaultTokenLifetime
	if t.ExpiresIn > 0 {
		lifetime = time.Duration(t.ExpiresIn) * time.Second
	}
	return t.ObtainedAt.Add(lifetime - tokenExpirySkew)
}

// Valid reports whether the token can still be used at now.
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.ExpiresAt())
}

// fetchToken exchanges the client credentials for a bearer token.
func (c *Client) fetchToken(ctx context.Context) (*Token, error) {
	if c.creds.APIKey == "" || c.creds.Secret == "" {
		return nil, &AuthenticationError{Message: "credentials not set"}
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.creds.APIKey + ":" + c.creds.Secret))
	req := &Request{
		Method: http.MethodPost,
		URL:    c.creds.AuthURL + tokenPath,
		Header: http.Header{
			"Authorization": []string{"Basic " + basic},
			"Accept":        []string{"application/json"},
		},
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, &AuthenticationError{Message: "token request failed", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Message: "token endpoint rejected credentials"}
	}

	var token Token
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Message: "malformed token response", Cause: err}
	}
	if token.AccessToken == "" {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Message: "token response has no access_token"}
	}
	token.ObtainedAt = c.now()
	return &token, nil
}

// Token returns the cached bearer token, fetching a new one when none is
// cached or the cached one has expired.
func (c *Client) Token(ctx context.Context) (*Token, error) {
	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()

	if cached.Valid(c.now()) {
		return cached, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return token, nil
}

// SetToken installs a token obtained elsewhere. A zero ObtainedAt is taken
// as now.
func (c *Client) SetToken(token *Token) {
	if token != nil && token.ObtainedAt.IsZero() {
		t := *token
		t.ObtainedAt = c.now()
		token = &t
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken drops the cached token; the next call fetches a fresh one.
func (c *Client) ClearToken() {
	c.SetToken(nil)
}
