// Package server exposes the relay's HTTP API: the Nightbot-facing /clip command,
// /status and /test diagnostics, plus /healthz and /metrics for operators. Every
// request gets a correlation id and a tracing span; CORS is permissive by default.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/japray/twitch-clip-bot/config"
)

// writeMargin covers handler work around the upstream calls.
const writeMargin = 5 * time.Second

// NewMux returns the HTTP handler with all routes.
func NewMux(h *Handlers) http.Handler {
	corsCfg := loadCORSConfig()

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.HandleHealthz)

	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /status", h.HandleStatus)
	mux.HandleFunc("GET /test", h.HandleTest)
	mux.HandleFunc("GET /clip", h.HandleClip)

	return withCORSConfig(withRequestTelemetry(mux), corsCfg)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, h *Handlers, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		// /clip holds the connection through creation and the resolution wait
		WriteTimeout: writeTimeout(h.cfg),
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown goroutine
	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr), slog.Duration("write_timeout", srv.WriteTimeout))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}

// writeTimeout outlasts the slowest possible /clip request so its answer is never cut off.
func writeTimeout(cfg *config.Config) time.Duration {
	return cfg.ClipDeadline() + writeMargin
}
