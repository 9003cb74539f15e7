// Package storage provides the key-value persistence capability used by the
// session client and the channel cache.
//
// A Db is a logical store: durable (SQLite file or OS keyring), session-scoped
// (SQLite cleared on open) or pure in-memory. Values are stored as JSON.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Db is the persistence capability injected into the session client and the
// cache store. Get returns (nil, nil) when no value exists under id.
type Db interface {
	// Get retrieves the raw JSON stored under id, or nil if absent.
	Get(ctx context.Context, id string) ([]byte, error)

	// Set stores obj under id, JSON-encoded, replacing any previous value.
	Set(ctx context.Context, id string, obj any) error

	// Clear removes everything from this logical store.
	Clear(ctx context.Context) error
}

// Load unmarshals the value stored under id into dest.
// Returns false with a nil error when nothing is stored under id.
func Load(ctx context.Context, db Db, id string, dest any) (bool, error) {
	data, err := db.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode stored value %q: %w", id, err)
	}
	return true, nil
}
