package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringDb stores values in the operating system keyring. The session record
// (tokens) goes here by default so credentials never sit in a plain file.
//
// The keyring has no enumeration API, so an index entry tracks the ids written
// by this store; Clear walks the index.
type KeyringDb struct {
	mu      sync.Mutex
	service string
}

var _ Db = (*KeyringDb)(nil)

const keyringIndexKey = "__hedgetv_keys"

// NewKeyringDb creates a keyring-backed store scoped to the given service name.
func NewKeyringDb(service string) *KeyringDb {
	return &KeyringDb{service: service}
}

func (k *KeyringDb) Get(ctx context.Context, id string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	secret, err := keyring.Get(k.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get %q: %w", id, err)
	}
	return []byte(secret), nil
}

func (k *KeyringDb) Set(ctx context.Context, id string, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode value %q: %w", id, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Set(k.service, id, string(data)); err != nil {
		return fmt.Errorf("keyring set %q: %w", id, err)
	}
	return k.indexAdd(id)
}

func (k *KeyringDb) Clear(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	ids, err := k.index()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := keyring.Delete(k.service, id); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring delete %q: %w", id, err)
		}
	}

	if err := keyring.Delete(k.service, keyringIndexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete index: %w", err)
	}
	return nil
}

func (k *KeyringDb) index() ([]string, error) {
	raw, err := keyring.Get(k.service, keyringIndexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode keyring index: %w", err)
	}
	return ids, nil
}

func (k *KeyringDb) indexAdd(id string) error {
	ids, err := k.index()
	if err != nil {
		return err
	}

	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode keyring index: %w", err)
	}
	if err := keyring.Set(k.service, keyringIndexKey, string(data)); err != nil {
		return fmt.Errorf("keyring set index: %w", err)
	}
	return nil
}
