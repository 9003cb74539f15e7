package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryDb is an in-memory [Db], used as the fallback store and in tests.
type MemoryDb struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Db = (*MemoryDb)(nil)

// NewMemoryDb creates an empty in-memory store.
func NewMemoryDb() *MemoryDb {
	return &MemoryDb{values: map[string][]byte{}}
}

func (m *MemoryDb) Get(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.values[id]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryDb) Set(ctx context.Context, id string, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode value %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[id] = data
	return nil
}

func (m *MemoryDb) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = map[string][]byte{}
	return nil
}
