/*
entity_store.go - Observable in-memory collection of one entity type

PURPOSE:
  EntityStore owns one semantic collection (courses, learners, ...) and
  mediates every read and write to it. Views read State() or Subscribe();
  actions call the mutators.

KEY OPERATIONS:
  SetAll / Add / Append / Update / Remove   synchronous mutators
  SetSelected / ClearSelected               single focused entity
  FetchAll / Create / Do                    async, remote-backed
  Hydrate                                   one-shot snapshot restore

INVARIANTS:
  - ids are unique within the collection (Append rejects duplicates)
  - TotalCount == len(Items) in every published State
  - Selected is nil or points at an id present in Items
  - Loading is true exactly while at least one async operation is in flight

ASYNC FAILURES:
  FetchAll/Create/Do never return remote errors. They set State.Error to a
  human-readable message and leave the collection as it was. No retries.

OVERLAPPING FETCHES:
  Each FetchAll takes a sequence number. Under LatestIssued a response whose
  sequence number is older than the latest issued one is dropped. Under
  LastResolved every response is applied in arrival order.

LOCKING:
  mu guards all fields. It is never held across a remote call, a snapshot
  write, or a subscriber callback.

SEE ALSO:
  - snapshot.go: SnapshotWriter, Broadcaster
  - store.go: Persister and Source interfaces
  - certs/stores.go: Concrete stores built on this type
*/
package generic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entity is implemented by every collection element.
type Entity[T any] interface {
	// Key returns the stable unique id.
	Key() string
	// Touched returns a copy with UpdatedAt set to at.
	Touched(at time.Time) T
}

// State is an immutable copy of a store's observable state.
type State[T any] struct {
	Items      []T    `json:"items"`
	Selected   *T     `json:"selected"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	TotalCount int    `json:"totalCount"`
	Version    uint64 `json:"version"`
}

// EntitySnapshot is the persisted subset of State. Only the selected id is
// kept; it is validated against Items on hydration.
type EntitySnapshot[T any] struct {
	Items      []T    `json:"items"`
	SelectedID string `json:"selectedId,omitempty"`
	TotalCount int    `json:"totalCount"`
}

// EntityStore is an observable collection backed by a remote Source.
type EntityStore[T Entity[T], D any] struct {
	name   string
	source Source[T, D]
	opts   Options
	snap   *SnapshotWriter
	subs   Broadcaster[State[T]]

	mu       sync.Mutex
	items    []T
	selected string
	inflight int
	err      string
	seq      uint64
	version  uint64
}

// NewEntityStore creates an empty store. key is the persistence key.
func NewEntityStore[T Entity[T], D any](name, key string, source Source[T, D], opts ...Option) *EntityStore[T, D] {
	o := BuildOptions(opts...)
	o.Logger = o.Logger.With(zap.String("store", name))
	return &EntityStore[T, D]{
		name:   name,
		source: source,
		opts:   o,
		snap:   NewSnapshotWriter(key, o),
	}
}

// Name returns the store name used in logs, metrics and error messages.
func (s *EntityStore[T, D]) Name() string { return s.name }

// =============================================================================
// READS
// =============================================================================

// State returns a copy of the current state.
func (s *EntityStore[T, D]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Items returns a copy of the collection.
func (s *EntityStore[T, D]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the entity with id.
func (s *EntityStore[T, D]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Len returns the collection size.
func (s *EntityStore[T, D]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe registers fn to receive every future state.
func (s *EntityStore[T, D]) Subscribe(fn func(State[T])) Unsubscriber {
	return s.subs.Subscribe(fn)
}

// =============================================================================
// SYNCHRONOUS MUTATORS
// =============================================================================

// SetAll replaces the collection.
func (s *EntityStore[T, D]) SetAll(items []T) {
	s.mu.Lock()
	s.replaceLocked(items)
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()
}

// Add appends one entity. Returns ErrDuplicateID if its id is already present.
func (s *EntityStore[T, D]) Add(item T) error {
	return s.Append(item)
}

// Append adds items atomically: if any id collides (with the collection or
// within items) nothing is added.
func (s *EntityStore[T, D]) Append(items ...T) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	if err := s.appendLocked(items); err != nil {
		s.mu.Unlock()
		return err
	}
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()
	return nil
}

// Update applies patch to a copy of the entity with id and refreshes its
// UpdatedAt. It reports false, leaving the collection untouched, when id is
// absent or when patch changed the id.
func (s *EntityStore[T, D]) Update(id string, patch func(*T)) (T, bool) {
	var zero T
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return zero, false
	}
	next := s.items[i]
	patch(&next)
	if next.Key() != id {
		s.mu.Unlock()
		s.opts.Logger.Warn("update rejected", zap.String("id", id), zap.Error(ErrImmutableID))
		return zero, false
	}
	next = next.Touched(s.opts.Now())
	s.items[i] = next
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()
	return next, true
}

// Remove deletes the entity with id. Clears the selection if it pointed at id.
func (s *EntityStore[T, D]) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	items := make([]T, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	items = append(items, s.items[i+1:]...)
	s.items = items
	if s.selected == id {
		s.selected = ""
	}
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()
	return true
}

// SetSelected focuses the entity with id.
func (s *EntityStore[T, D]) SetSelected(id string) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", s.name, id, ErrEntityNotFound)
	}
	s.selected = id
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()
	return nil
}

// ClearSelected removes the focus.
func (s *EntityStore[T, D]) ClearSelected() {
	s.mu.Lock()
	if s.selected == "" {
		s.mu.Unlock()
		return
	}
	s.selected = ""
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()
}

// =============================================================================
// ASYNC OPERATIONS
// =============================================================================

// FetchAll replaces the collection with the source's list.
func (s *EntityStore[T, D]) FetchAll(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.inflight++
	s.err = ""
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()

	start := time.Now()
	items, err := s.source.List(ctx)

	s.mu.Lock()
	s.inflight--
	outcome, persist := OutcomeSuccess, false
	switch {
	case s.opts.RacePolicy == LatestIssued && seq != s.seq:
		outcome = OutcomeStale
	case err != nil:
		outcome = OutcomeError
		s.err = ErrorMessage(err, "failed to fetch "+s.name)
	default:
		s.replaceLocked(items)
		persist = true
	}
	after = s.commitLocked(persist)
	s.mu.Unlock()
	after()

	s.observe("fetch", outcome, time.Since(start), err)
}

// Create asks the source to create an entity from draft and appends the
// result. On failure State.Error is set and false is returned.
func (s *EntityStore[T, D]) Create(ctx context.Context, draft D) (T, bool) {
	var created T
	ok := s.Do(ctx, "create", func(ctx context.Context) error {
		item, err := s.source.Create(ctx, draft)
		if err != nil {
			return err
		}
		if err := s.Append(item); err != nil {
			return err
		}
		created = item
		return nil
	})
	return created, ok
}

// Do runs fn as an async store operation: Loading is raised for its
// duration and any error is recorded in State.Error instead of returned.
func (s *EntityStore[T, D]) Do(ctx context.Context, op string, fn func(context.Context) error) bool {
	s.mu.Lock()
	s.inflight++
	s.err = ""
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()

	start := time.Now()
	err := fn(ctx)

	s.mu.Lock()
	s.inflight--
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		s.err = ErrorMessage(err, fmt.Sprintf("failed to %s %s", op, s.name))
	}
	after = s.commitLocked(false)
	s.mu.Unlock()
	after()

	s.observe(op, outcome, time.Since(start), err)
	return err == nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Hydrate restores the persisted snapshot. A missing snapshot is not an error.
// A selected id that no longer exists in the restored items is dropped.
func (s *EntityStore[T, D]) Hydrate(ctx context.Context) error {
	var snap EntitySnapshot[T]
	ok, err := s.snap.Read(ctx, &snap)
	if err != nil || !ok {
		return err
	}

	s.mu.Lock()
	s.selected = snap.SelectedID
	s.replaceLocked(snap.Items)
	if snap.SelectedID != "" && s.selected == "" {
		s.opts.Logger.Info("dropped dangling selection", zap.String("id", snap.SelectedID))
	}
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()

	s.opts.Logger.Debug("hydrated", zap.Int("items", len(snap.Items)))
	return nil
}

// Snapshot returns what would be persisted for the current state.
func (s *EntityStore[T, D]) Snapshot() EntitySnapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// =============================================================================
// INTERNALS (mu held)
// =============================================================================

func (s *EntityStore[T, D]) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.items {
		if s.items[i].Key() == id {
			return i
		}
	}
	return -1
}

func (s *EntityStore[T, D]) appendLocked(items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.Key()
		if _, dup := seen[id]; dup || s.indexLocked(id) >= 0 {
			return &DuplicateIDError{Store: s.name, ID: id}
		}
		seen[id] = struct{}{}
	}
	next := make([]T, 0, len(s.items)+len(items))
	next = append(next, s.items...)
	s.items = append(next, items...)
	return nil
}

// replaceLocked swaps in items, keeping the first of any duplicated id,
// and drops the selection if its id is gone.
func (s *EntityStore[T, D]) replaceLocked(items []T) {
	next := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.Key()
		if _, dup := seen[id]; dup {
			s.opts.Logger.Warn("dropped duplicate id", zap.String("id", id))
			continue
		}
		seen[id] = struct{}{}
		next = append(next, item)
	}
	s.items = next
	if _, ok := seen[s.selected]; !ok {
		s.selected = ""
	}
}

func (s *EntityStore[T, D]) stateLocked() State[T] {
	items := make([]T, len(s.items))
	copy(items, s.items)
	st := State[T]{
		Items:      items,
		Loading:    s.inflight > 0,
		Error:      s.err,
		TotalCount: len(items),
		Version:    s.version,
	}
	if i := s.indexLocked(s.selected); i >= 0 {
		sel := s.items[i]
		st.Selected = &sel
	}
	return st
}

func (s *EntityStore[T, D]) snapshotLocked() EntitySnapshot[T] {
	items := make([]T, len(s.items))
	copy(items, s.items)
	return EntitySnapshot[T]{Items: items, SelectedID: s.selected, TotalCount: len(items)}
}

// commitLocked bumps the version and captures state. The returned func
// persists (if asked) and publishes; call it after releasing mu.
func (s *EntityStore[T, D]) commitLocked(persist bool) func() {
	s.version++
	version := s.version
	st := s.stateLocked()
	var snap *EntitySnapshot[T]
	if persist {
		sn := s.snapshotLocked()
		snap = &sn
	}
	return func() {
		if snap != nil {
			s.snap.Write(version, snap)
		}
		s.subs.Publish(version, st)
	}
}

func (s *EntityStore[T, D]) observe(op, outcome string, took time.Duration, err error) {
	s.opts.Metrics.ObserveRequest(s.name, op, outcome, took)
	fields := []zap.Field{zap.String("op", op), zap.String("outcome", outcome), zap.Duration("took", took)}
	if err != nil {
		s.opts.Logger.Warn("async operation failed", append(fields, zap.Error(err))...)
		return
	}
	s.opts.Logger.Debug("async operation settled", fields...)
}
