/*
snapshot.go - Versioned snapshot writes and subscriber fan-out

PURPOSE:
  Shared plumbing for every store (entity, auth, ui):
  - SnapshotWriter persists a JSON snapshot under one key
  - Broadcaster delivers state copies to subscribers

VERSIONING:
  Every committed mutation carries a monotonically increasing version,
  assigned under the owning store's lock. Writes and deliveries happen after
  the lock is released, so two goroutines may race to persist. A write or
  delivery whose version is not newer than the last one is skipped; the
  snapshot on disk can never regress to an older state.

BEST EFFORT:
  A failed write is logged and counted, never returned. The in-memory
  state stays authoritative.
*/
package generic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// SNAPSHOT WRITER
// =============================================================================

// SnapshotWriter persists versioned snapshots under a single key.
type SnapshotWriter struct {
	key     string
	p       Persister
	logger  *zap.Logger
	metrics *Metrics
	timeout time.Duration

	mu      sync.Mutex
	written uint64
}

// NewSnapshotWriter returns a writer for key. With no persister in o,
// writes and reads are no-ops.
func NewSnapshotWriter(key string, o Options) *SnapshotWriter {
	return &SnapshotWriter{
		key:     key,
		p:       o.Persister,
		logger:  o.Logger,
		metrics: o.Metrics,
		timeout: o.SaveTimeout,
	}
}

// Key returns the storage key.
func (w *SnapshotWriter) Key() string { return w.key }

// Write stores v if version is newer than the last successful write.
func (w *SnapshotWriter) Write(version uint64, v any) {
	if w.p == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if version <= w.written {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		w.logger.Error("snapshot encode failed", zap.String("key", w.key), zap.Error(err))
		w.metrics.ObservePersistError(w.key)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.p.Save(ctx, w.key, data); err != nil {
		w.logger.Warn("snapshot write failed", zap.String("key", w.key), zap.Error(err))
		w.metrics.ObservePersistError(w.key)
		return
	}
	w.written = version
}

// Read decodes the stored snapshot into v. Returns false when nothing is stored.
func (w *SnapshotWriter) Read(ctx context.Context, v any) (bool, error) {
	if w.p == nil {
		return false, nil
	}
	data, err := w.p.Load(ctx, w.key)
	if errors.Is(err, ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", w.key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", w.key, err)
	}
	return true, nil
}

// =============================================================================
// BROADCASTER
// =============================================================================

// Unsubscriber detaches a subscriber. Calling it more than once is safe.
type Unsubscriber func()

// Broadcaster fans state copies out to subscribers.
// Callbacks run without any store lock held and may call back into the store.
type Broadcaster[S any] struct {
	mu        sync.Mutex
	subs      map[uint64]func(S)
	next      uint64
	delivered uint64
}

// Subscribe registers fn for every future published state.
func (b *Broadcaster[S]) Subscribe(fn func(S)) Unsubscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[uint64]func(S))
	}
	b.next++
	id := b.next
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers s to all subscribers unless a newer version was already delivered.
func (b *Broadcaster[S]) Publish(version uint64, s S) {
	b.mu.Lock()
	if version <= b.delivered {
		b.mu.Unlock()
		return
	}
	b.delivered = version
	fns := make([]func(S), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
