// Command twitch-clip-bot is a small HTTP relay that lets Nightbot create Twitch clips
// on behalf of the channel owner with one stored server-side credential.
// It:
//   - Loads configuration once and initializes structured logging.
//   - Builds the Helix client (optionally refreshing the access token via oauth2).
//   - Serves /clip, /status, /test, /, /healthz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/japray/twitch-clip-bot/clip"
	"github.com/japray/twitch-clip-bot/config"
	"github.com/japray/twitch-clip-bot/server"
	"github.com/japray/twitch-clip-bot/telemetry"
	"github.com/japray/twitch-clip-bot/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	creds := twitchapi.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		Timeout:      cfg.UpstreamTimeout,
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		// Not fatal: /status reports it and /clip answers with a configuration error.
		slog.Warn("twitch credentials incomplete, clip creation disabled", slog.Any("missing", missing))
	} else {
		slog.Info("twitch credentials loaded",
			slog.String("broadcaster_id", cfg.BroadcasterID),
			slog.String("channel", cfg.ChannelName),
			slog.String("token_tail", twitchapi.MaskToken(cfg.AccessToken)),
			slog.Bool("refresh", creds.CanRefresh()))
	}
	if cfg.AuthMode == config.AuthModeLegacy {
		slog.Info("clip authorization in legacy mode: only the channel owner with a privileged role label is refused")
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("twitch-clip-bot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()
	slog.Info("telemetry ready", slog.Bool("tracing", telemetry.IsTracingEnabled()), slog.Duration("clip_deadline", cfg.ClipDeadline()))

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Token refresh must not be tied to the signal context: in-flight clips finish during shutdown.
	ts := twitchapi.NewTokenSource(context.WithoutCancel(ctx), creds)
	api := twitchapi.NewClient(cfg.HelixBaseURL, cfg.ClientID, ts, cfg.UpstreamTimeout)
	clips := clip.New(cfg, api)

	if err := server.Start(ctx, server.NewHandlers(cfg, clips, api), cfg.Addr); err != nil {
		slog.Error("http server exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}
