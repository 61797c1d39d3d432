package twitchapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// Credentials describe the stored server-side user token used for every Helix call.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	// TokenURL overrides the Twitch token endpoint (tests).
	TokenURL string
	// Timeout bounds each refresh request. Zero leaves it unbounded.
	Timeout time.Duration
}

// CanRefresh reports whether the refresh_token grant can be attempted.
// Twitch requires the client id alongside the secret.
func (c Credentials) CanRefresh() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// NewTokenSource returns a token source for the stored credential. When CanRefresh holds
// the source renews the access token through the refresh_token grant; otherwise the
// access token is used as-is for the process lifetime. A failed refresh falls back to
// the stored access token so Helix, not the token endpoint, decides whether it is still good.
// ctx governs refresh requests and should outlive individual HTTP requests.
func NewTokenSource(ctx context.Context, c Credentials) oauth2.TokenSource {
	stored := &oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer"}
	if !c.CanRefresh() {
		return oauth2.StaticTokenSource(stored)
	}
	endpoint := twitch.Endpoint
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	if c.Timeout > 0 {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.Timeout})
	}
	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
	}
	// The stored token's lifetime is unknown, so mark it expired and let the first
	// call exchange the refresh token for one with a real expiry.
	seed := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now(),
	}
	slog.Info("twitch token refresh enabled", slog.String("component", "twitch_oauth"))
	return &loggingTokenSource{src: conf.TokenSource(ctx, seed), fallback: stored}
}

// loggingTokenSource logs each token change with only the tail of the secret.
type loggingTokenSource struct {
	src      oauth2.TokenSource
	fallback *oauth2.Token

	mu   sync.Mutex
	last string
}

func (l *loggingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := l.src.Token()
	if err != nil {
		if l.fallback == nil || l.fallback.AccessToken == "" {
			slog.Warn("twitch token refresh failed", slog.Any("err", err), slog.String("component", "twitch_oauth"))
			return nil, err
		}
		slog.Warn("twitch token refresh failed, using stored access token", slog.Any("err", err), slog.String("component", "twitch_oauth"))
		tok = l.fallback
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok.AccessToken != l.last {
		l.last = tok.AccessToken
		slog.Info("twitch access token acquired", slog.String("tail", MaskToken(tok.AccessToken)), slog.Time("expiry", tok.Expiry), slog.String("component", "twitch_oauth"))
	}
	return tok, nil
}

// MaskToken returns the last six characters of a secret prefixed with ***.
func MaskToken(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return "***" + tok[len(tok)-6:]
}
