package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Credentials identify an OAuth client and the user grant it holds.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// TokenURL overrides the Google token endpoint. Empty uses the default.
	TokenURL string

	// Timeout bounds each token refresh. Zero means no limit.
	Timeout time.Duration
}

// Validate reports the first missing field.
func (c Credentials) Validate() error {
	switch {
	case c.ClientID == "":
		return errors.New("google client ID is empty")
	case c.ClientSecret == "":
		return errors.New("google client secret is empty")
	case c.RefreshToken == "":
		return errors.New("google refresh token is empty")
	}
	return nil
}

// Session is an authorized Google API session.
type Session struct {
	ts oauth2.TokenSource
}

// NewSession builds a session that refreshes access tokens on demand. No
// network call is made until Authorize or the first API request.
func NewSession(ctx context.Context, creds Credentials) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	endpoint := google.Endpoint
	if creds.TokenURL != "" {
		endpoint.TokenURL = creds.TokenURL
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       ReadonlyScopes,
	}

	// Token refreshes, including those made mid-run, use a client bounded by Timeout.
	if creds.Timeout > 0 {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: creds.Timeout})
	}

	// An already-expired token forces a refresh on first use.
	ts := conf.TokenSource(ctx, &oauth2.Token{
		TokenType:    "Bearer",
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})

	return &Session{ts: oauth2.ReuseTokenSource(nil, ts)}, nil
}

// Authorize exchanges the refresh token now so that bad credentials surface
// before any API work starts.
func (s *Session) Authorize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.ts.Token(); err != nil {
		return fmt.Errorf("refresh google access token: %w", err)
	}
	return nil
}

// TokenSource returns the session's token source.
func (s *Session) TokenSource() oauth2.TokenSource {
	return s.ts
}

// HTTPClient returns an HTTP client that authorizes every request.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func (s *Session) HTTPClient(ctx context.Context) *http.Client {
	client := oauth2.NewClient(ctx, s.ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}
