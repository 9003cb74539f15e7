package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/zalando/go-keyring"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// exerciseDb runs the Db contract shared by every backend.
func exerciseDb(t *testing.T, db Db) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing id reads as absent", func(t *testing.T) {
		data, err := db.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if data != nil {
			t.Errorf("expected nil for a missing id, got %q", data)
		}
	})

	t.Run("set then get roundtrips", func(t *testing.T) {
		if err := db.Set(ctx, "item", payload{Name: "first", Count: 1}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got payload
		found, err := Load(ctx, db, "item", &got)
		if err != nil || !found {
			t.Fatalf("expected a value, found=%v err=%v", found, err)
		}
		if got.Name != "first" || got.Count != 1 {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("set overwrites wholesale", func(t *testing.T) {
		if err := db.Set(ctx, "item", payload{Name: "second", Count: 2}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got payload
		if _, err := Load(ctx, db, "item", &got); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Name != "second" {
			t.Errorf("expected the overwrite to win, got %+v", got)
		}
	})

	t.Run("clear empties the store", func(t *testing.T) {
		if err := db.Clear(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		data, err := db.Get(ctx, "item")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if data != nil {
			t.Error("expected the store to be empty after clear")
		}
	})
}

func TestMemoryDb(t *testing.T) {
	exerciseDb(t, NewMemoryDb())

	t.Run("reads are copies", func(t *testing.T) {
		db := NewMemoryDb()
		ctx := context.Background()
		db.Set(ctx, "item", payload{Name: "x"})

		data, _ := db.Get(ctx, "item")
		data[0] = '!'

		fresh, _ := db.Get(ctx, "item")
		if fresh[0] == '!' {
			t.Error("mutating a read must not corrupt the store")
		}
	})
}

func TestSQLiteDb(t *testing.T) {
	cfg := shared.DatabaseConfig{MaxOpenConns: 2, MaxIdleConns: 1}

	t.Run("contract", func(t *testing.T) {
		db, err := NewSQLiteDb(filepath.Join(t.TempDir(), "test.db"), "cache", cfg)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		exerciseDb(t, db)
	})

	t.Run("data survives reopening", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		ctx := context.Background()

		db, err := NewSQLiteDb(path, "cache", cfg)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		db.Set(ctx, "item", payload{Name: "durable"})
		db.Close()

		reopened, err := NewSQLiteDb(path, "cache", cfg)
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		var got payload
		found, err := Load(ctx, reopened, "item", &got)
		if err != nil || !found {
			t.Fatalf("expected the value to survive, found=%v err=%v", found, err)
		}
		if got.Name != "durable" {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("buckets are isolated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		ctx := context.Background()

		cache, err := NewSQLiteDb(path, "cache", cfg)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer cache.Close()
		session, err := NewSQLiteDb(path, "session", cfg)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer session.Close()

		cache.Set(ctx, "item", payload{Name: "cached"})
		if data, _ := session.Get(ctx, "item"); data != nil {
			t.Error("buckets must not see each other's values")
		}

		session.Set(ctx, "item", payload{Name: "session"})
		if err := session.Clear(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if data, _ := cache.Get(ctx, "item"); data == nil {
			t.Error("clearing one bucket must not clear the other")
		}
	})

	t.Run("session scoped store clears on open", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		ctx := context.Background()

		db, err := NewSQLiteDb(path, "session", cfg)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		db.Set(ctx, "item", payload{Name: "stale"})
		db.Close()

		scoped, err := NewSessionScopedDb(path, "session", cfg)
		if err != nil {
			t.Fatalf("failed to open session-scoped database: %v", err)
		}
		defer scoped.Close()

		data, err := scoped.Get(ctx, "item")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if data != nil {
			t.Error("expected the previous run's data to be gone")
		}
	})
}

func TestKeyringDb(t *testing.T) {
	keyring.MockInit()
	exerciseDb(t, NewKeyringDb("hedgetv-test"))

	t.Run("clear walks the index", func(t *testing.T) {
		keyring.MockInit()
		db := NewKeyringDb("hedgetv-test")
		ctx := context.Background()

		db.Set(ctx, "one", payload{Name: "a"})
		db.Set(ctx, "two", payload{Name: "b"})

		if err := db.Clear(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, id := range []string{"one", "two"} {
			if data, _ := db.Get(ctx, id); data != nil {
				t.Errorf("expected %s to be deleted", id)
			}
		}
	})
}
