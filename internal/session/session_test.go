package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/youhedge/hedgetv/internal/storage"
)

// newAuthServer serves the device login and refresh endpoints with the given
// token lifetime.
func newAuthServer(t *testing.T, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/tv/refresh-token":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh_token"] != "someRefreshToken" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "anotherAccessToken",
				"expires_in":   expiresIn,
			})
		case r.Method == http.MethodGet && r.URL.Path == "/auth/tv/someDeviceCode":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "someAccessToken",
				"refresh_token": "someRefreshToken",
				"expires_in":    expiresIn,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func storeRecord(t *testing.T, db storage.Db, auth models.AuthDetails) {
	t.Helper()
	rec := record{AuthDetails: &auth, APIBaseURL: "", RefreshTaskHandle: shared.GenerateID()}
	if err := db.Set(context.Background(), sessionRecordKey, rec); err != nil {
		t.Fatalf("failed to seed session record: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestClient(t *testing.T) {
	t.Run("starts logged out on an empty store", func(t *testing.T) {
		c, err := NewClient(Opts{Db: storage.NewMemoryDb()})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer c.Destroy()

		<-c.Hydrated()
		if c.IsLoggedIn() {
			t.Error("expected logged out")
		}
		if c.AuthDetails() != nil {
			t.Error("expected no auth details")
		}
	})

	t.Run("requires a store", func(t *testing.T) {
		if _, err := NewClient(Opts{}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("adopts a valid stored session", func(t *testing.T) {
		db := storage.NewMemoryDb()
		storeRecord(t, db, models.NewAuthDetails("someAccessToken", "someRefreshToken", 3600, time.Now()))

		c, err := NewClient(Opts{BaseURL: "http://unused", Db: db})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer c.Destroy()

		<-c.Hydrated()
		if !c.IsLoggedIn() {
			t.Fatal("expected logged in")
		}
		if c.AuthDetails().AccessToken != "someAccessToken" {
			t.Errorf("expected stored token, got %s", c.AuthDetails().AccessToken)
		}
	})

	t.Run("refreshes an expired stored session", func(t *testing.T) {
		server := newAuthServer(t, 3600)
		defer server.Close()

		db := storage.NewMemoryDb()
		expired := models.NewAuthDetails("someAccessToken", "someRefreshToken", 120, time.Now().Add(-130*time.Second))
		storeRecord(t, db, expired)

		c, err := NewClient(Opts{BaseURL: server.URL, Db: db})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer c.Destroy()

		<-c.Hydrated()
		if !c.IsLoggedIn() {
			t.Fatal("expected a refreshed session")
		}
		if c.AuthDetails().AccessToken != "anotherAccessToken" {
			t.Errorf("expected refreshed token, got %s", c.AuthDetails().AccessToken)
		}
		if c.AuthDetails().RefreshToken != "someRefreshToken" {
			t.Error("expected the refresh token to carry over")
		}

		// The refreshed credentials are persisted.
		var rec record
		found, err := storage.Load(context.Background(), db, sessionRecordKey, &rec)
		if err != nil || !found {
			t.Fatalf("expected a persisted record, found=%v err=%v", found, err)
		}
		if rec.AuthDetails.AccessToken != "anotherAccessToken" {
			t.Errorf("persisted token not refreshed: %s", rec.AuthDetails.AccessToken)
		}
	})

	t.Run("stays logged out when expired with no refresh token", func(t *testing.T) {
		db := storage.NewMemoryDb()
		storeRecord(t, db, models.NewAuthDetails("someAccessToken", "", 120, time.Now().Add(-130*time.Second)))

		c, err := NewClient(Opts{BaseURL: "http://unused", Db: db})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer c.Destroy()

		<-c.Hydrated()
		if c.IsLoggedIn() {
			t.Error("expected logged out")
		}
	})

	t.Run("FinalizeLogin", func(t *testing.T) {
		server := newAuthServer(t, 3600)
		defer server.Close()

		details := models.LoginDetails{DeviceCode: "someDeviceCode", Interval: 5}

		t.Run("adopts and persists credentials", func(t *testing.T) {
			db := storage.NewMemoryDb()
			c, _ := NewClient(Opts{BaseURL: server.URL, Db: db})
			defer c.Destroy()
			<-c.Hydrated()

			if err := c.FinalizeLogin(context.Background(), details); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !c.IsLoggedIn() {
				t.Fatal("expected logged in")
			}

			var rec record
			if found, _ := storage.Load(context.Background(), db, sessionRecordKey, &rec); !found {
				t.Fatal("expected a persisted session record")
			}
			if rec.AuthDetails.AccessToken != "someAccessToken" {
				t.Errorf("persisted wrong token: %s", rec.AuthDetails.AccessToken)
			}
			if rec.RefreshTaskHandle == "" {
				t.Error("expected a refresh task handle in the record")
			}
		})

		t.Run("pending sign-in surfaces ErrAuthPending", func(t *testing.T) {
			c, _ := NewClient(Opts{BaseURL: server.URL, Db: storage.NewMemoryDb()})
			defer c.Destroy()
			<-c.Hydrated()

			err := c.FinalizeLogin(context.Background(), models.LoginDetails{DeviceCode: "wrongCode", Interval: 5})
			if !errors.Is(err, shared.ErrAuthPending) {
				t.Fatalf("expected ErrAuthPending, got %v", err)
			}
			if c.IsLoggedIn() {
				t.Error("a pending login must not authenticate")
			}
		})
	})

	t.Run("refreshes immediately when already inside the lead window", func(t *testing.T) {
		server := newAuthServer(t, 3600)
		defer server.Close()

		db := storage.NewMemoryDb()
		storeRecord(t, db, models.NewAuthDetails("someAccessToken", "someRefreshToken", 2, time.Now()))

		c, err := NewClient(Opts{BaseURL: server.URL, Db: db, RefreshLead: 5 * time.Second})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer c.Destroy()

		<-c.Hydrated()
		waitFor(t, 3*time.Second, func() bool {
			auth := c.AuthDetails()
			return auth != nil && auth.AccessToken == "anotherAccessToken"
		})
	})

	t.Run("RefreshAuthDetails keeps state on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		db := storage.NewMemoryDb()
		auth := models.NewAuthDetails("someAccessToken", "someRefreshToken", 3600, time.Now())
		storeRecord(t, db, auth)

		c, _ := NewClient(Opts{BaseURL: server.URL, Db: db})
		defer c.Destroy()
		<-c.Hydrated()

		if err := c.RefreshAuthDetails(context.Background(), auth); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if c.AuthDetails().AccessToken != "someAccessToken" {
			t.Error("a failed refresh must not clobber current credentials")
		}
		if c.IsRefreshing() {
			t.Error("refreshing flag must reset after failure")
		}
	})

	t.Run("TokenSource", func(t *testing.T) {
		t.Run("fails when logged out", func(t *testing.T) {
			c, _ := NewClient(Opts{Db: storage.NewMemoryDb()})
			defer c.Destroy()
			<-c.Hydrated()

			if _, err := c.TokenSource().Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("yields the current token", func(t *testing.T) {
			db := storage.NewMemoryDb()
			storeRecord(t, db, models.NewAuthDetails("someAccessToken", "someRefreshToken", 3600, time.Now()))
			c, _ := NewClient(Opts{BaseURL: "http://unused", Db: db})
			defer c.Destroy()
			<-c.Hydrated()

			token, err := c.TokenSource().Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.AccessToken != "someAccessToken" {
				t.Errorf("expected someAccessToken, got %s", token.AccessToken)
			}
		})
	})

	t.Run("Logout clears credentials and the store", func(t *testing.T) {
		db := storage.NewMemoryDb()
		storeRecord(t, db, models.NewAuthDetails("someAccessToken", "someRefreshToken", 3600, time.Now()))
		c, _ := NewClient(Opts{BaseURL: "http://unused", Db: db})
		defer c.Destroy()
		<-c.Hydrated()

		if err := c.Logout(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.IsLoggedIn() {
			t.Error("expected logged out")
		}

		data, err := db.Get(context.Background(), sessionRecordKey)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if data != nil {
			t.Error("expected the session record to be cleared")
		}
	})

	t.Run("Destroy drops a late refresh result", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"access_token": "anotherAccessToken", "expires_in": 3600})
		}))
		defer server.Close()

		db := storage.NewMemoryDb()
		auth := models.NewAuthDetails("someAccessToken", "someRefreshToken", 3600, time.Now())
		storeRecord(t, db, auth)

		c, _ := NewClient(Opts{BaseURL: server.URL, Db: db})
		<-c.Hydrated()

		done := make(chan error, 1)
		go func() { done <- c.RefreshAuthDetails(context.Background(), auth) }()

		waitFor(t, time.Second, c.IsRefreshing)
		if err := c.Destroy(); err != nil {
			t.Fatalf("destroy failed: %v", err)
		}
		close(release)

		if err := <-done; err != nil {
			t.Fatalf("expected the late refresh to be discarded quietly, got %v", err)
		}
		if got := c.AuthDetails().AccessToken; got != "someAccessToken" {
			t.Errorf("a late refresh must not reanimate a destroyed client, got %s", got)
		}
	})
}
