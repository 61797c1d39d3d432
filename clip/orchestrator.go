// Package clip creates Twitch clips on behalf of the channel owner for chat-bot callers.
//
// A request is checked against the configuration and the authorization predicate,
// then a clip is created through Helix. Creation is the point of no return: once
// Helix has accepted it, lookup failures are masked by a constructed URL and the
// caller still gets a success message.
package clip

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/japray/twitch-clip-bot/config"
	"github.com/japray/twitch-clip-bot/telemetry"
	"github.com/japray/twitch-clip-bot/twitchapi"
)

const (
	defaultUser = "unknown"
	defaultRole = "viewer"
)

// allowedRoles are the role labels Nightbot sends for privileged chatters. Matching is case-sensitive.
var allowedRoles = map[string]struct{}{
	"mod":         {},
	"broadcaster": {},
	"vip":         {},
	"owner":       {},
}

// Request is the caller-supplied identity. It is taken at face value.
type Request struct {
	User string
	Role string
}

// NewRequest applies the caller defaults for absent values.
func NewRequest(user, role string) Request {
	if user == "" {
		user = defaultUser
	}
	if role == "" {
		role = defaultRole
	}
	return Request{User: user, Role: role}
}

// UpstreamAPI is the subset of the Helix client the orchestrator needs.
type UpstreamAPI interface {
	CreateClip(ctx context.Context, broadcasterID string) (twitchapi.CreatedClip, error)
	GetClip(ctx context.Context, id string) (twitchapi.Clip, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Orchestrator turns clip requests into Helix calls. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	cfg   *config.Config
	api   UpstreamAPI
	sem   *semaphore.Weighted
	sleep Sleeper
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSleeper replaces the resolution wait (tests).
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// New builds an Orchestrator. cfg must not be modified afterwards.
func New(cfg *config.Config, api UpstreamAPI, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, api: api, sleep: sleepCtx}
	if cfg.MaxConcurrent > 0 {
		o.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsAllowedRole reports whether role is one of the privileged labels.
func IsAllowedRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}

// IsChannelOwner compares the caller name with the configured channel, ignoring case.
func IsChannelOwner(cfg *config.Config, user string) bool {
	return strings.EqualFold(user, cfg.ChannelName)
}

// Authorize decides whether req may create a clip.
//
// In legacy mode the only rejected combination is a channel owner whose role is an
// allowed label; every other caller, viewers included, may clip. Strict mode admits
// allowed roles and the channel owner only.
func Authorize(cfg *config.Config, req Request) bool {
	allowed := IsAllowedRole(req.Role)
	owner := IsChannelOwner(cfg, req.User)
	if cfg.AuthMode == config.AuthModeStrict {
		return allowed || owner
	}
	return !(allowed && owner)
}

// CreateClip runs the full request: config check, authorization, creation and resolution.
func (o *Orchestrator) CreateClip(ctx context.Context, req Request) Result {
	defer telemetry.TrackInFlight()()

	ctx, span := telemetry.StartSpan(ctx, "clip", "CreateClip",
		attribute.String("clip.user", req.User),
		attribute.String("clip.role", req.Role),
	)
	defer span.End()

	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "clip"))
	log.Info("clip request", slog.String("user", req.User), slog.String("role", req.Role))

	var res Result
	telemetry.TimeFunc(telemetry.ClipDuration, func() { res = o.createClip(ctx, log, req) })

	span.SetAttributes(attribute.String("clip.outcome", res.Outcome.String()))
	if res.OK() {
		telemetry.SetSpanSuccess(span)
	} else if res.Err != nil {
		telemetry.RecordError(span, res.Err)
	}
	telemetry.CountClip(res.Outcome.String())
	return res
}

func (o *Orchestrator) createClip(ctx context.Context, log *slog.Logger, req Request) Result {
	if missing := o.cfg.Missing(); len(missing) > 0 {
		log.Error("missing environment variables", slog.Any("missing", missing))
		return Result{Outcome: OutcomeConfigError, Err: errors.New("missing " + strings.Join(missing, ", "))}
	}

	if !Authorize(o.cfg, req) {
		log.Warn("clip request rejected", slog.String("user", req.User), slog.String("role", req.Role), slog.String("mode", string(o.cfg.AuthMode)))
		return Result{Outcome: OutcomeUnauthorized}
	}

	if o.sem != nil {
		if err := o.acquire(ctx); err != nil {
			log.Warn("clip request abandoned while waiting for a slot", slog.Any("err", err))
			return Result{Outcome: OutcomeUpstreamError, Err: err}
		}
		defer o.sem.Release(1)
	}

	log.Info("creating clip via twitch api", slog.String("broadcaster_id", o.cfg.BroadcasterID))
	created, err := o.api.CreateClip(ctx, o.cfg.BroadcasterID)
	if err != nil {
		outcome := Classify(err)
		res := Result{Outcome: outcome, Err: err}
		var apiErr *twitchapi.APIError
		if errors.As(err, &apiErr) {
			res.StatusCode = apiErr.StatusCode
		}
		log.Error("clip creation error", slog.Any("err", err), slog.String("outcome", outcome.String()), slog.Int("status", res.StatusCode))
		return res
	}
	log.Info("clip created", slog.String("clip_id", created.ID))

	// The clip exists upstream now; finish resolving even if the caller goes away.
	url, fallback := o.resolve(context.WithoutCancel(ctx), log, created.ID)
	return Result{Outcome: OutcomeCreated, URL: url, ClipID: created.ID, Fallback: fallback}
}

// acquire waits for a concurrency slot for at most one upstream timeout.
func (o *Orchestrator) acquire(ctx context.Context) error {
	if o.cfg.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.UpstreamTimeout)
		defer cancel()
	}
	return o.sem.Acquire(ctx, 1)
}

// resolve waits for Helix to finish processing and returns the playback URL. The
// configured delay is the total budget, split evenly over the lookup attempts.
func (o *Orchestrator) resolve(ctx context.Context, log *slog.Logger, clipID string) (string, bool) {
	ctx, span := telemetry.StartSpan(ctx, "clip", "ResolveClip", attribute.String("clip.id", clipID))
	defer span.End()

	attempts := o.cfg.ResolveAttempts
	if attempts < 1 {
		attempts = 1
	}
	wait := o.cfg.ResolveDelay / time.Duration(attempts)

	for i := 1; i <= attempts; i++ {
		log.Debug("waiting for clip to process", slog.Duration("wait", wait), slog.Int("attempt", i))
		if err := o.sleep(ctx, wait); err != nil {
			log.Warn("clip resolution interrupted", slog.Any("err", err))
			break
		}
		info, err := o.api.GetClip(ctx, clipID)
		if err != nil {
			log.Debug("clip lookup failed", slog.Any("err", err), slog.Int("attempt", i))
			continue
		}
		if info.URL == "" {
			break
		}
		log.Info("clip resolved", slog.String("url", info.URL))
		return info.URL, false
	}

	url := FallbackURL(clipID)
	telemetry.CountResolveFallback()
	log.Warn("clip details unavailable, using basic url", slog.String("url", url))
	return url, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
