// Package twitchapi contains minimal helpers to interact with the Twitch Helix API
// for clip creation, clip lookup, and a credential probe, authenticated with a
// single stored user access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/japray/twitch-clip-bot/telemetry"
)

// ErrNotFound is returned when a lookup succeeds but Helix returns no descriptors.
var ErrNotFound = errors.New("twitchapi: not found")

// APIError is a non-success Helix response.
type APIError struct {
	StatusCode int
	// Message is the upstream "message" field, verbatim, when the body carried one.
	Message string
	Body    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if msg == "" {
		return fmt.Sprintf("helix request failed: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("helix request failed: HTTP %d: %s", e.StatusCode, msg)
}

// CreatedClip is the descriptor returned by POST /clips.
type CreatedClip struct {
	ID      string `json:"id"`
	EditURL string `json:"edit_url"`
}

// Clip is the subset of GET /clips metadata the relay uses.
type Clip struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	EmbedURL      string  `json:"embed_url"`
	BroadcasterID string  `json:"broadcaster_id"`
	CreatorName   string  `json:"creator_name"`
	Title         string  `json:"title"`
	ThumbnailURL  string  `json:"thumbnail_url"`
	Duration      float64 `json:"duration"`
	CreatedAt     string  `json:"created_at"`
}

// User is the subset of GET /users the status probe reads.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Client issues Helix requests. The Authorization header is supplied by the
// oauth2 transport wrapped around HTTPClient; Client only sets Client-Id.
type Client struct {
	BaseURL    string
	ClientID   string
	HTTPClient *http.Client
}

// NewClient returns a Client whose transport attaches a bearer token from ts.
func NewClient(baseURL, clientID string, ts oauth2.TokenSource, timeout time.Duration) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// CreateClip asks Helix to start capturing a clip of the broadcaster's live stream.
// Helix answers 202 while the clip is processed asynchronously; 200 is accepted too.
func (c *Client) CreateClip(ctx context.Context, broadcasterID string) (CreatedClip, error) {
	if broadcasterID == "" {
		return CreatedClip{}, errors.New("broadcaster id empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	var body struct {
		Data []CreatedClip `json:"data"`
	}
	if err := c.do(ctx, "create_clip", http.MethodPost, "/clips", q, &body, http.StatusOK, http.StatusAccepted); err != nil {
		return CreatedClip{}, err
	}
	if len(body.Data) == 0 || body.Data[0].ID == "" {
		return CreatedClip{}, errors.New("create clip: response carried no clip descriptor")
	}
	return body.Data[0], nil
}

// GetClip looks up a clip by id.
func (c *Client) GetClip(ctx context.Context, id string) (Clip, error) {
	if id == "" {
		return Clip{}, errors.New("clip id empty")
	}
	q := url.Values{}
	q.Set("id", id)
	var body struct {
		Data []Clip `json:"data"`
	}
	if err := c.do(ctx, "get_clip", http.MethodGet, "/clips", q, &body, http.StatusOK); err != nil {
		return Clip{}, err
	}
	if len(body.Data) == 0 {
		return Clip{}, ErrNotFound
	}
	return body.Data[0], nil
}

// GetUsers returns the user(s) behind the access token. With no query parameters
// Helix resolves the token owner, which makes this a cheap credential probe.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var body struct {
		Data []User `json:"data"`
	}
	if err := c.do(ctx, "get_users", http.MethodGet, "/users", nil, &body, http.StatusOK); err != nil {
		return nil, err
	}
	return body.Data, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, out any, okStatus ...int) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Client-Id", c.ClientID)

	start := time.Now()
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.ObserveUpstream(op, "error", time.Since(start))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	telemetry.ObserveUpstream(op, strconv.Itoa(resp.StatusCode), time.Since(start))

	ok := false
	for _, s := range okStatus {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	var payload struct {
		Error   string `json:"error"`
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}
