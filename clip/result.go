package clip

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"

	"github.com/japray/twitch-clip-bot/twitchapi"
)

// Outcome classifies how a clip request ended.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUnauthorized
	OutcomeConfigError
	// OutcomeAuthError means Helix rejected the stored credential (401).
	OutcomeAuthError
	// OutcomeStreamOffline covers 403 and the "channel must be live" message.
	OutcomeStreamOffline
	OutcomeUpstreamError
)

// String returns the metric/log label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeConfigError:
		return "config_error"
	case OutcomeAuthError:
		return "auth_error"
	case OutcomeStreamOffline:
		return "stream_offline"
	case OutcomeUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Caller-facing messages. Nightbot prints the body verbatim in chat.
const (
	MsgCreatedPrefix = "✅ Clip created! "
	MsgUnauthorized  = "❌ Only moderators, VIPs, and the broadcaster can create clips."
	MsgConfigError   = "❌ Server configuration error. Please contact the streamer."
	MsgAuthError     = "❌ Authentication failed. Please contact the streamer."
	MsgStreamOffline = "❌ Stream must be live to create clips!"
	MsgUpstreamError = "❌ Failed to create clip. The stream might be offline or there was an API issue."
)

// streamOfflineMarker is matched case-sensitively against the upstream error message.
const streamOfflineMarker = "channel must be live"

// Result is the per-request answer of CreateClip. It is never stored.
type Result struct {
	Outcome Outcome
	// URL is set only for OutcomeCreated.
	URL    string
	ClipID string
	// Fallback reports that URL was constructed because the lookup did not yield one.
	Fallback bool
	// StatusCode is the upstream HTTP status for upstream failures, 0 otherwise.
	StatusCode int
	Err        error
}

// OK reports whether a clip was created.
func (r Result) OK() bool { return r.Outcome == OutcomeCreated }

// Message returns the fixed caller-facing text for the result.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeCreated:
		return MsgCreatedPrefix + r.URL
	case OutcomeUnauthorized:
		return MsgUnauthorized
	case OutcomeConfigError:
		return MsgConfigError
	case OutcomeAuthError:
		return MsgAuthError
	case OutcomeStreamOffline:
		return MsgStreamOffline
	default:
		return MsgUpstreamError
	}
}

// Classify maps a clip-creation failure to its outcome.
//
// 401 and a rejected token refresh are authentication failures; 403, or an error
// payload whose message contains "channel must be live", means the stream is offline.
// Everything else, network failures included, is a generic upstream error.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeCreated
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return OutcomeAuthError
	}
	var apiErr *twitchapi.APIError
	if !errors.As(err, &apiErr) {
		return OutcomeUpstreamError
	}
	switch apiErr.StatusCode {
	case 401:
		return OutcomeAuthError
	case 403:
		return OutcomeStreamOffline
	}
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Body
	}
	if strings.Contains(msg, streamOfflineMarker) {
		return OutcomeStreamOffline
	}
	return OutcomeUpstreamError
}

// FallbackURL is the deterministic clip URL used when lookup yields none.
func FallbackURL(clipID string) string {
	return "https://clips.twitch.tv/" + clipID
}
