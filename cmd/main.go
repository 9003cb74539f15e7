package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/youhedge/hedgetv/internal/api"
	"github.com/youhedge/hedgetv/internal/session"
	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/youhedge/hedgetv/internal/storage"
	"github.com/youhedge/hedgetv/internal/store"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	httpClient := &http.Client{Timeout: time.Duration(config.API.TimeoutSecs) * time.Second}

	sessionDb := newSessionDb(config, logger)
	cacheDb := newCacheDb(config, logger)

	sess, err := session.NewClient(session.Opts{
		BaseURL:     config.API.BaseURL,
		Db:          sessionDb,
		HTTPClient:  httpClient,
		Logger:      logger,
		RefreshLead: time.Duration(config.Session.RefreshLeadSecs) * time.Second,
	})
	if err != nil {
		logger.Fatalf("failed to create session client: %v", err)
	}
	defer sess.Destroy()

	service := api.NewYouTubeService(config.API.BaseURL, sess.TokenSource(), httpClient)

	cache := store.New(store.Opts{
		Db:         cacheDb,
		Logger:     logger,
		StaleAfter: time.Duration(config.Cache.StaleAfterSecs) * time.Second,
	})
	defer cache.Destroy(context.Background())

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Session:    sess,
		Service:    service,
		Cache:      cache,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "hedgetv",
		Usage:    "Browse YouTube subscriptions from the terminal via YouHedge",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newSessionDb builds the credential store per [session] store: the OS keyring
// by default, SQLite scoped to one run, or plain memory.
func newSessionDb(config *shared.Config, logger *log.Logger) storage.Db {
	switch config.Session.Store {
	case "", "keyring":
		return storage.NewKeyringDb("hedgetv")
	case "sqlite":
		db, err := storage.NewSessionScopedDb(shared.ExpandPath(config.Database.Path), "session", config.Database)
		if err != nil {
			logger.Warn("failed to open session database, falling back to memory", "err", err)
			return storage.NewMemoryDb()
		}
		return db
	case "memory":
		return storage.NewMemoryDb()
	default:
		logger.Warn("unknown session store, using keyring", "store", config.Session.Store)
		return storage.NewKeyringDb("hedgetv")
	}
}

// newCacheDb opens the durable catalog cache, degrading to memory when the
// database cannot be opened so browsing still works for the current run.
func newCacheDb(config *shared.Config, logger *log.Logger) storage.Db {
	db, err := storage.NewSQLiteDb(shared.ExpandPath(config.Database.Path), "cache", config.Database)
	if err != nil {
		logger.Warn("failed to open cache database, falling back to memory", "err", err)
		return storage.NewMemoryDb()
	}
	return db
}
