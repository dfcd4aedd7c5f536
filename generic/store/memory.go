// Package store provides Persister implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/certdash/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	saves  map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		saves:  make(map[string]int),
	}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, generic.ErrSnapshotNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	m.saves[key]++
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Saves reports how many times key was written. Used by tests to check
// that transient changes (loading flags) are not persisted.
func (m *Memory) Saves(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[key]
}
