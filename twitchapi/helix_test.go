package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/helix", "test-client-id", oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}), 5*time.Second)
}

func checkAuthHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	if r.Header.Get("Client-Id") != "test-client-id" {
		t.Errorf("missing or wrong Client-Id header")
	}
	if r.Header.Get("Authorization") != "Bearer test-token" {
		t.Errorf("missing or wrong Authorization header: %q", r.Header.Get("Authorization"))
	}
}

func TestClient_CreateClip(t *testing.T) {
	tests := []struct {
		response    interface{}
		name        string
		wantID      string
		wantStatus  int
		wantMessage string
		statusCode  int
		wantErr     bool
	}{
		{
			name:       "accepted",
			statusCode: http.StatusAccepted,
			response: map[string]interface{}{
				"data": []map[string]string{{"id": "abc123", "edit_url": "https://clips.twitch.tv/abc123/edit"}},
			},
			wantID: "abc123",
		},
		{
			name:       "ok also accepted",
			statusCode: http.StatusOK,
			response: map[string]interface{}{
				"data": []map[string]string{{"id": "xyz"}},
			},
			wantID: "xyz",
		},
		{
			name:        "offline channel",
			statusCode:  http.StatusForbidden,
			response:    map[string]interface{}{"error": "Forbidden", "status": 403, "message": "Clips are disabled"},
			wantErr:     true,
			wantStatus:  http.StatusForbidden,
			wantMessage: "Clips are disabled",
		},
		{
			name:       "bad token",
			statusCode: http.StatusUnauthorized,
			response:   map[string]interface{}{"error": "Unauthorized", "status": 401, "message": "Invalid OAuth token"},
			wantErr:    true,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty data",
			statusCode: http.StatusAccepted,
			response:   map[string]interface{}{"data": []map[string]string{}},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				checkAuthHeaders(t, r)
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if r.URL.Path != "/helix/clips" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("broadcaster_id"); got != "42" {
					t.Errorf("broadcaster_id = %q, want 42", got)
				}
				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(tt.response)
			})

			clip, err := client.CreateClip(context.Background(), "42")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CreateClip() error = nil, want error")
				}
				if tt.wantStatus != 0 {
					var apiErr *APIError
					if !errors.As(err, &apiErr) {
						t.Fatalf("error %v is not *APIError", err)
					}
					if apiErr.StatusCode != tt.wantStatus {
						t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
					}
					if tt.wantMessage != "" && apiErr.Message != tt.wantMessage {
						t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateClip() unexpected error = %v", err)
			}
			if clip.ID != tt.wantID {
				t.Errorf("CreateClip() id = %s, want %s", clip.ID, tt.wantID)
			}
		})
	}
}

func TestClient_CreateClipEmptyBroadcaster(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := client.CreateClip(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty broadcaster id")
	}
}

func TestClient_GetClip(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantURL    string
		statusCode int
		wantErr    error
		anyErr     bool
	}{
		{
			name:       "found",
			statusCode: http.StatusOK,
			body:       `{"data":[{"id":"abc123","url":"https://clips.twitch.tv/abc123-custom","title":"gg"}]}`,
			wantURL:    "https://clips.twitch.tv/abc123-custom",
		},
		{
			name:       "still processing",
			statusCode: http.StatusOK,
			body:       `{"data":[]}`,
			wantErr:    ErrNotFound,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			body:       `oops`,
			anyErr:     true,
		},
		{
			name:       "garbage body",
			statusCode: http.StatusOK,
			body:       `{not json`,
			anyErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				checkAuthHeaders(t, r)
				if got := r.URL.Query().Get("id"); got != "abc123" {
					t.Errorf("id = %q", got)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			})
			clip, err := client.GetClip(context.Background(), "abc123")
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetClip() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatal("GetClip() error = nil, want error")
				}
			default:
				if err != nil {
					t.Fatalf("GetClip() unexpected error = %v", err)
				}
				if clip.URL != tt.wantURL {
					t.Errorf("URL = %q, want %q", clip.URL, tt.wantURL)
				}
			}
		})
	}
}

func TestClient_GetUsers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checkAuthHeaders(t, r)
		if r.URL.Path != "/helix/users" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"42","login":"streamer","display_name":"Streamer"}]}`))
	})
	users, err := client.GetUsers(context.Background())
	if err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Login != "streamer" {
		t.Errorf("GetUsers() = %+v", users)
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	client := NewClient(base, "cid", oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}), time.Second)
	_, err := client.GetClip(context.Background(), "abc")
	if err == nil {
		t.Fatal("expected network error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("network failure should not be an APIError: %v", err)
	}
	if !strings.Contains(err.Error(), "get_clip") {
		t.Errorf("error %q should name the operation", err)
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		err  *APIError
		want string
	}{
		{&APIError{StatusCode: 403, Message: "channel must be live"}, "helix request failed: HTTP 403: channel must be live"},
		{&APIError{StatusCode: 500, Body: "boom"}, "helix request failed: HTTP 500: boom"},
		{&APIError{StatusCode: 502}, "helix request failed: HTTP 502 Bad Gateway"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
