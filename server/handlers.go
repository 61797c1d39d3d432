package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/japray/twitch-clip-bot/clip"
	"github.com/japray/twitch-clip-bot/config"
	"github.com/japray/twitch-clip-bot/twitchapi"
)

// ClipCreator runs one clip request end to end.
type ClipCreator interface {
	CreateClip(ctx context.Context, req clip.Request) clip.Result
}

// StatusChecker checks that the stored credential is accepted by Twitch.
type StatusChecker interface {
	GetUsers(ctx context.Context) ([]twitchapi.User, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	cfg     *config.Config
	clips   ClipCreator
	checker StatusChecker
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(cfg *config.Config, clips ClipCreator, checker StatusChecker) *Handlers {
	return &Handlers{cfg: cfg, clips: clips, checker: checker}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("err", err))
	}
}
