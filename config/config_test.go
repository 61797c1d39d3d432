package config

import (
	"reflect"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so ambient values on the host don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CLIENT_ID", "TWITCH_CLIENT_ID", "ACCESS_TOKEN", "TWITCH_ACCESS_TOKEN",
		"BROADCASTER_ID", "TWITCH_BROADCASTER_ID", "CHANNEL_NAME", "TWITCH_CHANNEL",
		"CLIENT_SECRET", "TWITCH_CLIENT_SECRET", "REFRESH_TOKEN", "TWITCH_REFRESH_TOKEN",
		"HELIX_BASE_URL", "UPSTREAM_TIMEOUT_MS", "CLIP_RESOLVE_DELAY_MS", "CLIP_RESOLVE_ATTEMPTS",
		"CLIP_MAX_CONCURRENT", "CLIP_AUTH_MODE", "RESPONSE_FORMAT", "HTTP_ADDR", "PORT", "HOSTING",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want :3000", cfg.Addr)
	}
	if cfg.ResolveDelay != 5*time.Second {
		t.Errorf("ResolveDelay = %v, want 5s", cfg.ResolveDelay)
	}
	if cfg.ResolveAttempts != 1 {
		t.Errorf("ResolveAttempts = %d, want 1", cfg.ResolveAttempts)
	}
	if cfg.AuthMode != AuthModeLegacy {
		t.Errorf("AuthMode = %q, want legacy", cfg.AuthMode)
	}
	if cfg.ResponseFormat != FormatText {
		t.Errorf("ResponseFormat = %q, want text", cfg.ResponseFormat)
	}
	if cfg.HelixBaseURL != DefaultHelixBaseURL {
		t.Errorf("HelixBaseURL = %q", cfg.HelixBaseURL)
	}
	if cfg.Ready() {
		t.Error("expected Ready() false without credentials")
	}
}

func TestLoadAliasesAndOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWITCH_CLIENT_ID", "cid")
	t.Setenv("ACCESS_TOKEN", "tok")
	t.Setenv("BROADCASTER_ID", "123")
	t.Setenv("CHANNEL_NAME", "SomeStreamer")
	t.Setenv("PORT", "9999")
	t.Setenv("HELIX_BASE_URL", "http://localhost:1234/helix/")
	t.Setenv("CLIP_AUTH_MODE", "STRICT")
	t.Setenv("RESPONSE_FORMAT", "json")
	t.Setenv("CLIP_RESOLVE_DELAY_MS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ClientID != "cid" {
		t.Errorf("ClientID = %q, want alias value", cfg.ClientID)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.HelixBaseURL != "http://localhost:1234/helix" {
		t.Errorf("HelixBaseURL = %q, want trailing slash trimmed", cfg.HelixBaseURL)
	}
	if cfg.AuthMode != AuthModeStrict || cfg.ResponseFormat != FormatJSON {
		t.Errorf("mode/format = %q/%q", cfg.AuthMode, cfg.ResponseFormat)
	}
	if cfg.ResolveDelay != 0 {
		t.Errorf("ResolveDelay = %v, want 0", cfg.ResolveDelay)
	}
	if !cfg.Ready() {
		t.Errorf("expected Ready(), missing %v", cfg.Missing())
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CLIP_RESOLVE_DELAY_MS", "soon"},
		{"CLIP_RESOLVE_DELAY_MS", "-5"},
		{"CLIP_RESOLVE_ATTEMPTS", "0"},
		{"CLIP_MAX_CONCURRENT", "-1"},
		{"CLIP_AUTH_MODE", "everyone"},
		{"RESPONSE_FORMAT", "xml"},
		{"UPSTREAM_TIMEOUT_MS", "abc"},
		{"UPSTREAM_TIMEOUT_MS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"all present", Config{ClientID: "a", AccessToken: "b", BroadcasterID: "c"}, nil},
		{"no client id", Config{AccessToken: "b", BroadcasterID: "c"}, []string{"CLIENT_ID"}},
		{"no token", Config{ClientID: "a", BroadcasterID: "c"}, []string{"ACCESS_TOKEN"}},
		{"nothing", Config{}, []string{"CLIENT_ID", "ACCESS_TOKEN", "BROADCASTER_ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Missing(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Missing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPAddrWinsOverPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	t.Setenv("HTTP_ADDR", "127.0.0.1:5000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:5000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
}

func TestClipDeadline(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{"defaults", Config{UpstreamTimeout: 10 * time.Second, ResolveDelay: 5 * time.Second, ResolveAttempts: 1}, 45 * time.Second},
		{"long delay", Config{UpstreamTimeout: 10 * time.Second, ResolveDelay: 60 * time.Second, ResolveAttempts: 1}, 100 * time.Second},
		{"several attempts", Config{UpstreamTimeout: 2 * time.Second, ResolveDelay: 6 * time.Second, ResolveAttempts: 3}, 22 * time.Second},
		{"guarded", Config{UpstreamTimeout: 10 * time.Second, ResolveDelay: 5 * time.Second, ResolveAttempts: 1, MaxConcurrent: 2}, 55 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ClipDeadline(); got != tt.want {
				t.Errorf("ClipDeadline() = %v, want %v", got, tt.want)
			}
		})
	}
}
