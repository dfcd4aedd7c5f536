package ui

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/certdash/generic"
)

// DefaultSuccessTTL is how long a success notification stays queued.
const DefaultSuccessTTL = 5 * time.Second

// State is an immutable copy of the UI store.
type State struct {
	SidebarOpen   bool           `json:"sidebarOpen"`
	Theme         Theme          `json:"theme"`
	Notifications []Notification `json:"notifications"`
	Loading       bool           `json:"loading"`
	Modals        Modals         `json:"modals"`
	Filters       Filters        `json:"filters"`
	Pagination    Pagination     `json:"pagination"`
	Version       uint64         `json:"version"`
}

// Snapshot is the persisted subset of State. Notifications and the
// loading flag are never persisted.
type Snapshot struct {
	SidebarOpen bool       `json:"sidebarOpen"`
	Theme       Theme      `json:"theme"`
	Modals      Modals     `json:"modals"`
	Filters     Filters    `json:"filters"`
	Pagination  Pagination `json:"pagination"`
}

// Settings are the UI store's collaborators.
type Settings struct {
	Appearance Appearance       // receives the resolved theme; optional
	Preference PreferenceSource // resolves ThemeSystem; optional, light when nil
	SuccessTTL time.Duration    // 0 means DefaultSuccessTTL
}

// Store owns interface state shared across views.
type Store struct {
	settings Settings
	opts     generic.Options
	snap     *generic.SnapshotWriter
	subs     generic.Broadcaster[State]
	dismiss  *dismisser

	mu            sync.Mutex
	sidebarOpen   bool
	theme         Theme
	notifications []Notification
	loading       bool
	modals        Modals
	filters       Filters
	pagination    Pagination
	version       uint64
}

// NewStore creates a UI store with default state. Close releases its timers.
func NewStore(settings Settings, opts ...generic.Option) *Store {
	if settings.SuccessTTL <= 0 {
		settings.SuccessTTL = DefaultSuccessTTL
	}
	o := generic.BuildOptions(opts...)
	o.Logger = o.Logger.With(zap.String("store", "ui"))
	s := &Store{
		settings:    settings,
		opts:        o,
		snap:        generic.NewSnapshotWriter(generic.KeyUI, o),
		sidebarOpen: true,
		theme:       ThemeSystem,
		filters:     DefaultFilters(),
		pagination:  DefaultPagination(),
	}
	s.dismiss = newDismisser(s.expire)
	return s
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) Subscribe(fn func(State)) generic.Unsubscriber {
	return s.subs.Subscribe(fn)
}

// =============================================================================
// TOGGLES
// =============================================================================

func (s *Store) SetSidebarOpen(open bool) {
	s.mutate(true, func() { s.sidebarOpen = open })
}

func (s *Store) ToggleSidebar() {
	s.mutate(true, func() { s.sidebarOpen = !s.sidebarOpen })
}

// SetTheme records t and applies it to the appearance. ThemeSystem is
// resolved against the platform preference now; later preference changes
// are not followed.
func (s *Store) SetTheme(t Theme) {
	s.mutate(true, func() { s.theme = t })
	s.apply(t)
}

// SetLoading sets the global loading indicator.
func (s *Store) SetLoading(loading bool) {
	s.mutate(false, func() { s.loading = loading })
}

func (s *Store) apply(t Theme) {
	if s.settings.Appearance == nil {
		return
	}
	resolved := resolve(t, s.settings.Preference)
	s.settings.Appearance.Apply(resolved)
	s.opts.Logger.Debug("theme applied", zap.String("theme", string(t)), zap.String("resolved", string(resolved)))
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notify queues a notification at the front. Success notifications are
// removed automatically after the success TTL.
func (s *Store) Notify(d NotificationDraft) Notification {
	if d.Type == "" {
		d.Type = NotifyInfo
	}
	n := Notification{
		ID:        uuid.NewString(),
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		Timestamp: s.opts.Now(),
	}
	s.mutate(false, func() {
		s.notifications = append([]Notification{n}, s.notifications...)
	})
	if n.Type == NotifySuccess {
		s.dismiss.schedule(n.ID, s.settings.SuccessTTL)
	}
	s.opts.Metrics.ObserveNotification(string(n.Type), "created")
	return n
}

// RemoveNotification dismisses id and cancels its timer. Reports whether
// it was queued.
func (s *Store) RemoveNotification(id string) bool {
	s.dismiss.cancel(id)
	n, ok := s.drop(id)
	if ok {
		s.opts.Metrics.ObserveNotification(string(n.Type), "removed")
	}
	return ok
}

// MarkNotificationRead sets the read flag of id.
func (s *Store) MarkNotificationRead(id string) bool {
	s.mu.Lock()
	i := s.notificationLocked(id)
	if i < 0 || s.notifications[i].Read {
		s.mu.Unlock()
		return i >= 0
	}
	next := make([]Notification, len(s.notifications))
	copy(next, s.notifications)
	next[i].Read = true
	s.notifications = next
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()
	return true
}

// ClearNotifications empties the queue and cancels every pending timer.
func (s *Store) ClearNotifications() {
	s.dismiss.cancelAll()
	s.mutate(false, func() { s.notifications = nil })
}

// expire is the auto-dismiss callback.
func (s *Store) expire(id string) {
	if n, ok := s.drop(id); ok {
		s.opts.Metrics.ObserveNotification(string(n.Type), "expired")
	}
}

func (s *Store) drop(id string) (Notification, bool) {
	s.mu.Lock()
	i := s.notificationLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return Notification{}, false
	}
	n := s.notifications[i]
	next := make([]Notification, 0, len(s.notifications)-1)
	next = append(next, s.notifications[:i]...)
	s.notifications = append(next, s.notifications[i+1:]...)
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()
	return n, true
}

func (s *Store) notificationLocked(id string) int {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// MODALS, FILTERS, PAGINATION
// =============================================================================

func (s *Store) SetModalOpen(m Modal, open bool) {
	s.mutate(true, func() { s.modals.set(m, open) })
}

// SetFilters applies the non-nil fields of p.
func (s *Store) SetFilters(p FilterPatch) {
	s.mutate(true, func() {
		f := s.filters.clone()
		p.apply(&f)
		s.filters = f
	})
}

// SetPagination applies the non-nil fields of p.
func (s *Store) SetPagination(p PaginationPatch) {
	s.mutate(true, func() { p.apply(&s.pagination) })
}

// ResetFilters restores default filters and pagination.
func (s *Store) ResetFilters() {
	s.mutate(true, func() {
		s.filters = DefaultFilters()
		s.pagination = DefaultPagination()
	})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Hydrate restores the ui-storage snapshot and re-applies the stored theme.
func (s *Store) Hydrate(ctx context.Context) error {
	var snap Snapshot
	ok, err := s.snap.Read(ctx, &snap)
	if err != nil || !ok {
		return err
	}
	theme, err := ParseTheme(string(snap.Theme))
	if err != nil {
		s.opts.Logger.Warn("ignoring stored theme", zap.String("theme", string(snap.Theme)))
		theme = ThemeSystem
	}
	s.mutate(false, func() {
		s.sidebarOpen = snap.SidebarOpen
		s.theme = theme
		s.modals = snap.Modals
		s.filters = snap.Filters.clone()
		s.pagination = snap.Pagination
		if s.pagination.Page < 1 || s.pagination.ItemsPerPage < 1 {
			s.pagination = DefaultPagination()
		}
	})
	s.apply(theme)
	return nil
}

// Close stops every pending auto-dismiss timer. Notifications already
// queued stay queued.
func (s *Store) Close() {
	s.dismiss.close()
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) mutate(persist bool, fn func()) {
	s.mu.Lock()
	fn()
	after := s.commitLocked(persist)
	s.mu.Unlock()
	after()
}

func (s *Store) stateLocked() State {
	notifications := make([]Notification, len(s.notifications))
	copy(notifications, s.notifications)
	return State{
		SidebarOpen:   s.sidebarOpen,
		Theme:         s.theme,
		Notifications: notifications,
		Loading:       s.loading,
		Modals:        s.modals,
		Filters:       s.filters.clone(),
		Pagination:    s.pagination,
		Version:       s.version,
	}
}

func (s *Store) commitLocked(persist bool) func() {
	s.version++
	version := s.version
	st := s.stateLocked()
	return func() {
		if persist {
			s.snap.Write(version, Snapshot{
				SidebarOpen: st.SidebarOpen,
				Theme:       st.Theme,
				Modals:      st.Modals,
				Filters:     st.Filters,
				Pagination:  st.Pagination,
			})
		}
		s.subs.Publish(version, st)
	}
}
