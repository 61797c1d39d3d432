package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/japray/twitch-clip-bot/telemetry"
	"github.com/japray/twitch-clip-bot/twitchapi"
)

// HandleStatus reports configuration presence and probes Twitch with the stored credential.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Ready() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":            "Missing environment variables",
			"hasClientId":      h.cfg.ClientID != "",
			"hasAccessToken":   h.cfg.AccessToken != "",
			"hasBroadcasterId": h.cfg.BroadcasterID != "",
		})
		return
	}

	if _, err := h.checker.GetUsers(r.Context()); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("status check error", slog.Any("err", err), slog.String("component", "status"))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Status check failed",
			"details": statusDetails(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "✅ All systems operational",
		"channel":       h.cfg.ChannelName,
		"twitchApi":     "✅ Connected",
		"broadcasterId": h.cfg.BroadcasterID,
		"hosting":       h.cfg.Hosting,
	})
}

// statusDetails prefers the upstream payload over the wrapped Go error text.
func statusDetails(err error) string {
	var apiErr *twitchapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Body != "" {
			return apiErr.Body
		}
		return apiErr.Error()
	}
	return err.Error()
}
