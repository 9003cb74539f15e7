package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
	helpers "github.com/youhedge/hedgetv/internal/testing"
)

func TestYouTubeService(t *testing.T) {
	t.Run("GetChannels", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(TokenHeader) != "someAccessToken" {
				t.Errorf("expected %s header, got %q", TokenHeader, r.Header.Get(TokenHeader))
			}

			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/youtube/subscriptions":
				if r.URL.Query().Get("pageToken") != "yutth" {
					t.Errorf("expected pageToken yutth, got %s", r.URL.Query().Get("pageToken"))
				}
				json.NewEncoder(w).Encode(map[string]any{
					"prevPageToken": "prev",
					"nextPageToken": "next",
					"items": []map[string]any{
						{
							"id": "sub1",
							"snippet": map[string]any{
								"title":      "First Channel",
								"resourceId": map[string]any{"channelId": "chan1"},
							},
						},
						{
							"id": "sub2",
							"snippet": map[string]any{
								"title":      "Second Channel",
								"resourceId": map[string]any{"channelId": "chan2"},
							},
						},
					},
				})
			case "/youtube/channels/chan1", "/youtube/channels/chan2":
				id := r.URL.Path[len("/youtube/channels/"):]
				json.NewEncoder(w).Encode(map[string]any{
					"id": id,
					"snippet": map[string]any{
						"title":       "Channel " + id,
						"description": "about " + id,
						"thumbnails": map[string]any{
							"default": map[string]any{"url": "http://img/default.jpg"},
							"high":    map[string]any{"url": "http://img/high.jpg"},
						},
					},
					"contentDetails": map[string]any{
						"relatedPlaylists": map[string]any{"uploads": "UU" + id},
					},
				})
			default:
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		svc := NewYouTubeService(server.URL, helpers.StaticTokenSource("someAccessToken"), nil)
		channels, err := svc.GetChannels(context.Background(), "yutth")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(channels) != 2 {
			t.Fatalf("expected 2 channels, got %d", len(channels))
		}

		first := channels[0]
		if first.ID != "chan1" {
			t.Errorf("expected first channel id chan1, got %s", first.ID)
		}
		if first.Position != 0 || channels[1].Position != 1 {
			t.Errorf("expected positions 0 and 1, got %d and %d", first.Position, channels[1].Position)
		}
		if first.PlaylistID != "UUchan1" {
			t.Errorf("expected uploads playlist UUchan1, got %s", first.PlaylistID)
		}
		if first.ImageURL != "http://img/high.jpg" {
			t.Errorf("expected the high thumbnail, got %s", first.ImageURL)
		}
		// The batch records where it came from and where to go next.
		if first.PageToken != "prev" {
			t.Errorf("expected pageToken prev, got %s", first.PageToken)
		}
		if first.NextPageToken != "next" {
			t.Errorf("expected nextPageToken next, got %s", first.NextPageToken)
		}
		if first.Timestamp.IsZero() {
			t.Error("expected a fetch timestamp")
		}
	})

	t.Run("GetPlaylistItems", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/youtube/playlist-items/UUchan1" {
				t.Errorf("expected path /youtube/playlist-items/UUchan1, got %s", r.URL.Path)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"nextPageToken": "next",
				"items": []map[string]any{
					{
						"id": "item1",
						"snippet": map[string]any{
							"title":    "A Video",
							"position": 3,
							"resourceId": map[string]any{
								"videoId": "vid1",
							},
							"thumbnails": map[string]any{
								"medium": map[string]any{"url": "http://img/medium.jpg"},
							},
						},
					},
				},
			})
		}))
		defer server.Close()

		channel := models.Channel{ID: "chan1", PlaylistID: "UUchan1"}
		svc := NewYouTubeService(server.URL, helpers.StaticTokenSource("someAccessToken"), nil)

		videos, err := svc.GetPlaylistItems(context.Background(), channel, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(videos) != 1 {
			t.Fatalf("expected 1 video, got %d", len(videos))
		}

		video := videos[0]
		if video.ChannelID != "chan1" {
			t.Errorf("expected owning channel chan1, got %s", video.ChannelID)
		}
		if video.Position != 3 {
			t.Errorf("expected position 3, got %d", video.Position)
		}
		if video.VideoID != "vid1" {
			t.Errorf("expected video id vid1, got %s", video.VideoID)
		}
		if video.ImageURL != "http://img/medium.jpg" {
			t.Errorf("expected medium thumbnail fallback, got %s", video.ImageURL)
		}
		if video.WatchURL() != "https://www.youtube.com/watch?v=vid1" {
			t.Errorf("unexpected watch URL %s", video.WatchURL())
		}
	})

	t.Run("Error Handling", func(t *testing.T) {
		t.Run("handles 500 internal error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			svc := NewYouTubeService(server.URL, helpers.StaticTokenSource("someAccessToken"), nil)
			if _, err := svc.Subscriptions(context.Background(), ""); !errors.Is(err, shared.ErrNetwork) {
				t.Fatalf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("fails before the wire without a token", func(t *testing.T) {
			called := false
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			defer server.Close()

			svc := NewYouTubeService(server.URL, nil, nil)
			if _, err := svc.Subscriptions(context.Background(), ""); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			if called {
				t.Error("request must not reach the server without a token")
			}
		})
	})
}

func TestTransport(t *testing.T) {
	t.Run("stamps the token header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(TokenHeader) != "someAccessToken" {
				t.Errorf("expected token header, got %q", r.Header.Get(TokenHeader))
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewAuthorizedClient(helpers.StaticTokenSource("someAccessToken"), nil)
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()
	})

	t.Run("empty access token is not authenticated", func(t *testing.T) {
		client := NewAuthorizedClient(helpers.StaticTokenSource(""), nil)
		if _, err := client.Get("http://unused"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("token source errors propagate", func(t *testing.T) {
		src := &helpers.MockTokenSource{Err: shared.ErrNotAuthenticated}
		client := NewAuthorizedClient(src, nil)
		if _, err := client.Get("http://unused"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
