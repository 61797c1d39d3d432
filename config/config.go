// Package config loads environment variables and provides the typed, immutable Config
// shared by the clip orchestrator and the HTTP server. It is read once at startup.
// Missing Twitch credentials are not a load error; callers use Missing/Ready so /status
// can report them and /clip can short-circuit.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthMode selects the clip authorization predicate.
type AuthMode string

const (
	// AuthModeLegacy rejects only an owner whose role matches an allowed role label.
	AuthModeLegacy AuthMode = "legacy"
	// AuthModeStrict admits only allowed roles and the channel owner.
	AuthModeStrict AuthMode = "strict"
)

// ResponseFormat selects the /clip wire shape.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// DefaultHelixBaseURL is the production Helix API root.
const DefaultHelixBaseURL = "https://api.twitch.tv/helix"

type Config struct {
	// Twitch
	ClientID      string
	AccessToken   string
	BroadcasterID string
	ChannelName   string

	// Optional token refresh (oauth2 refresh_token grant)
	ClientSecret string
	RefreshToken string

	HelixBaseURL    string
	UpstreamTimeout time.Duration

	// Clip orchestration
	ResolveDelay    time.Duration
	ResolveAttempts int
	AuthMode        AuthMode
	MaxConcurrent   int

	// HTTP
	Addr           string
	ResponseFormat ResponseFormat
	Hosting        string
}

// Load reads environment variables and applies defaults. It only fails on malformed values;
// absent credentials are reported by Missing.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ClientID = firstEnv("CLIENT_ID", "TWITCH_CLIENT_ID")
	cfg.AccessToken = firstEnv("ACCESS_TOKEN", "TWITCH_ACCESS_TOKEN")
	cfg.BroadcasterID = firstEnv("BROADCASTER_ID", "TWITCH_BROADCASTER_ID")
	cfg.ChannelName = firstEnv("CHANNEL_NAME", "TWITCH_CHANNEL")
	cfg.ClientSecret = firstEnv("CLIENT_SECRET", "TWITCH_CLIENT_SECRET")
	cfg.RefreshToken = firstEnv("REFRESH_TOKEN", "TWITCH_REFRESH_TOKEN")

	cfg.HelixBaseURL = strings.TrimRight(os.Getenv("HELIX_BASE_URL"), "/")
	if cfg.HelixBaseURL == "" {
		cfg.HelixBaseURL = DefaultHelixBaseURL
	}

	var err error
	if cfg.UpstreamTimeout, err = envMillis("UPSTREAM_TIMEOUT_MS", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout == 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT_MS: must be > 0")
	}
	if cfg.ResolveDelay, err = envMillis("CLIP_RESOLVE_DELAY_MS", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ResolveAttempts, err = envInt("CLIP_RESOLVE_ATTEMPTS", 1); err != nil {
		return nil, err
	}
	if cfg.ResolveAttempts < 1 {
		return nil, fmt.Errorf("invalid CLIP_RESOLVE_ATTEMPTS: must be >= 1, got %d", cfg.ResolveAttempts)
	}
	if cfg.MaxConcurrent, err = envInt("CLIP_MAX_CONCURRENT", 0); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent < 0 {
		return nil, fmt.Errorf("invalid CLIP_MAX_CONCURRENT: must be >= 0, got %d", cfg.MaxConcurrent)
	}

	switch mode := AuthMode(strings.ToLower(os.Getenv("CLIP_AUTH_MODE"))); mode {
	case "", AuthModeLegacy:
		cfg.AuthMode = AuthModeLegacy
	case AuthModeStrict:
		cfg.AuthMode = AuthModeStrict
	default:
		return nil, fmt.Errorf("invalid CLIP_AUTH_MODE %q (want legacy or strict)", mode)
	}

	switch f := ResponseFormat(strings.ToLower(os.Getenv("RESPONSE_FORMAT"))); f {
	case "", FormatText:
		cfg.ResponseFormat = FormatText
	case FormatJSON:
		cfg.ResponseFormat = FormatJSON
	default:
		return nil, fmt.Errorf("invalid RESPONSE_FORMAT %q (want text or json)", f)
	}

	// HTTP_ADDR wins over PORT (hosting platforms usually inject PORT)
	cfg.Addr = os.Getenv("HTTP_ADDR")
	if cfg.Addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		cfg.Addr = ":" + port
	}

	cfg.Hosting = os.Getenv("HOSTING")
	if cfg.Hosting == "" {
		cfg.Hosting = "Render.com"
	}

	return cfg, nil
}

// Missing returns the names of required Twitch settings that are empty.
func (c *Config) Missing() []string {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.AccessToken == "" {
		missing = append(missing, "ACCESS_TOKEN")
	}
	if c.BroadcasterID == "" {
		missing = append(missing, "BROADCASTER_ID")
	}
	return missing
}

// Ready reports whether clip creation can contact Twitch at all.
func (c *Config) Ready() bool { return len(c.Missing()) == 0 }

// ClipDeadline is the longest a single clip request can take: an optional wait for a
// concurrency slot, the create call, the resolve delay and one lookup per attempt.
// Every Helix call may be preceded by a token refresh bounded by the same timeout.
func (c *Config) ClipDeadline() time.Duration {
	d := 2*c.UpstreamTimeout*time.Duration(1+c.ResolveAttempts) + c.ResolveDelay
	if c.MaxConcurrent > 0 {
		d += c.UpstreamTimeout
	}
	return d
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envMillis(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (milliseconds): %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must be >= 0, got %d", key, n)
	}
	return time.Duration(n) * time.Millisecond, nil
}
