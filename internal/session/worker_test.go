package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/storage"
)

func TestRefreshWorker(t *testing.T) {
	t.Run("broadcasts fresh credentials to every subscriber", func(t *testing.T) {
		server := newAuthServer(t, 3600)
		defer server.Close()

		w := NewRefreshWorker(WorkerOpts{BaseURL: server.URL, RefreshLead: time.Second})
		defer w.Stop()

		first := make(chan Message, 1)
		second := make(chan Message, 1)
		w.Subscribe(func(msg Message) { first <- msg })
		w.Subscribe(func(msg Message) { second <- msg })

		// Already inside the lead window, so the refresh fires at once.
		auth := models.NewAuthDetails("someAccessToken", "someRefreshToken", 0, time.Now())
		w.Post(Message{Type: StartTokenRefresh, Auth: &auth})

		for _, ch := range []chan Message{first, second} {
			select {
			case msg := <-ch:
				if msg.Type != TokenRefreshed {
					t.Errorf("expected TOKEN_REFRESHED, got %v", msg.Type)
				}
				if msg.Auth == nil || msg.Auth.AccessToken != "anotherAccessToken" {
					t.Error("expected refreshed credentials in the broadcast")
				}
				if msg.ID == "" {
					t.Error("expected a message id")
				}
			case <-time.After(3 * time.Second):
				t.Fatal("subscriber never received the broadcast")
			}
		}
	})

	t.Run("unsubscribed clients stop receiving", func(t *testing.T) {
		server := newAuthServer(t, 3600)
		defer server.Close()

		w := NewRefreshWorker(WorkerOpts{BaseURL: server.URL, RefreshLead: time.Second})
		defer w.Stop()

		var gone atomic.Int32
		kept := make(chan Message, 1)
		id := w.Subscribe(func(Message) { gone.Add(1) })
		w.Subscribe(func(msg Message) { kept <- msg })
		w.Unsubscribe(id)

		auth := models.NewAuthDetails("someAccessToken", "someRefreshToken", 0, time.Now())
		w.Post(Message{Type: StartTokenRefresh, Auth: &auth})

		select {
		case <-kept:
		case <-time.After(3 * time.Second):
			t.Fatal("remaining subscriber never received the broadcast")
		}
		if gone.Load() != 0 {
			t.Error("unsubscribed callback must not fire")
		}
	})

	t.Run("collapses concurrent start requests into one chain", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"access_token": "anotherAccessToken", "expires_in": 3600})
		}))
		defer server.Close()

		w := NewRefreshWorker(WorkerOpts{BaseURL: server.URL, RefreshLead: time.Second})
		defer w.Stop()

		got := make(chan Message, 4)
		w.Subscribe(func(msg Message) { got <- msg })

		auth := models.NewAuthDetails("someAccessToken", "someRefreshToken", 0, time.Now())
		for range 3 {
			w.Post(Message{Type: StartTokenRefresh, Auth: &auth})
		}

		select {
		case <-got:
		case <-time.After(3 * time.Second):
			t.Fatal("no broadcast received")
		}

		// The later posts replaced the pending timer instead of stacking chains.
		time.Sleep(200 * time.Millisecond)
		if hits.Load() != 1 {
			t.Errorf("expected exactly one refresh call, got %d", hits.Load())
		}
	})

	t.Run("stopped worker drops messages", func(t *testing.T) {
		w := NewRefreshWorker(WorkerOpts{BaseURL: "http://unused"})
		w.Stop()

		auth := models.NewAuthDetails("someAccessToken", "someRefreshToken", 0, time.Now())
		w.Post(Message{Type: StartTokenRefresh, Auth: &auth})
		// Nothing to assert beyond not panicking and not dialing out.
	})

	t.Run("duplicate broadcasts are idempotent for clients", func(t *testing.T) {
		c, _ := NewClient(Opts{Db: storage.NewMemoryDb()})
		defer c.Destroy()
		<-c.Hydrated()

		auth := models.NewAuthDetails("anotherAccessToken", "someRefreshToken", 3600, time.Now())
		msg := Message{ID: "dup", Type: TokenRefreshed, Auth: &auth}
		c.applyBroadcast(msg)
		c.applyBroadcast(msg)

		if got := c.AuthDetails().AccessToken; got != "anotherAccessToken" {
			t.Errorf("expected anotherAccessToken, got %s", got)
		}
	})

	t.Run("clients delegate their chain to the worker", func(t *testing.T) {
		server := newAuthServer(t, 3600)
		defer server.Close()

		w := NewRefreshWorker(WorkerOpts{BaseURL: server.URL, RefreshLead: time.Second})
		defer w.Stop()

		db := storage.NewMemoryDb()
		storeRecord(t, db, models.NewAuthDetails("someAccessToken", "someRefreshToken", 0, time.Now().Add(time.Second)))

		c, _ := NewClient(Opts{BaseURL: server.URL, Db: db, Worker: w, RefreshLead: time.Second})
		defer c.Destroy()
		<-c.Hydrated()

		c.StartTokenRefresh()
		waitFor(t, 3*time.Second, func() bool {
			auth := c.AuthDetails()
			return auth != nil && auth.AccessToken == "anotherAccessToken"
		})
	})

	t.Run("message types have names", func(t *testing.T) {
		if StartTokenRefresh.String() != "START_TOKEN_REFRESH" {
			t.Errorf("unexpected name %s", StartTokenRefresh.String())
		}
		if TokenRefreshed.String() != "TOKEN_REFRESHED" {
			t.Errorf("unexpected name %s", TokenRefreshed.String())
		}
	})
}
