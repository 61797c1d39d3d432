package server

import (
	"log/slog"
	"net/http"

	"github.com/japray/twitch-clip-bot/clip"
	"github.com/japray/twitch-clip-bot/config"
	"github.com/japray/twitch-clip-bot/telemetry"
)

// HandleRoot reports that the relay is up and lists its routes.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "✅ Server is running on " + h.cfg.Hosting,
		"message": "Twitch Clip API for Nightbot",
		"endpoints": map[string]string{
			"clip":   "/clip",
			"status": "/status",
			"test":   "/test",
		},
	})
}

// HandleTest echoes the caller parameters so a Nightbot command can be wired up safely.
func (h *Handlers) HandleTest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("user")
	if user == "" {
		user = "unknown"
	}
	role := q.Get("role")
	if role == "" {
		role = "unknown"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "✅ Twitch Clip Bot is working!",
		"user":    user,
		"role":    role,
	})
}

// HandleClip creates a clip for the user/role given in the query.
//
// User-facing failures keep HTTP 200 so Nightbot prints the message; only a
// configuration error answers 500.
func (h *Handlers) HandleClip(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := clip.NewRequest(q.Get("user"), q.Get("role"))

	res := h.clips.CreateClip(r.Context(), req)

	status := http.StatusOK
	if res.Outcome == clip.OutcomeConfigError {
		status = http.StatusInternalServerError
	}
	if r.Context().Err() != nil {
		telemetry.LoggerWithCorr(r.Context()).Info("caller went away before clip response", slog.String("outcome", res.Outcome.String()), slog.String("url", res.URL))
	}
	h.writeMessage(w, status, res.Message())
}

// writeMessage renders a caller-facing message in the configured wire shape.
func (h *Handlers) writeMessage(w http.ResponseWriter, status int, msg string) {
	if h.cfg.ResponseFormat == config.FormatJSON {
		writeJSON(w, status, map[string]string{"message": msg})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
