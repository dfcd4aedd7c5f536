package ui_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/generic/store"
	"github.com/warp/certdash/ui"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T, settings ui.Settings) (*ui.Store, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	s := ui.NewStore(settings, generic.WithPersister(mem))
	t.Cleanup(s.Close)
	return s, mem
}

func ptr[T any](v T) *T { return &v }

var ignoreVersion = cmpopts.IgnoreFields(ui.State{}, "Version")

// =============================================================================
// DEFAULTS & TOGGLES
// =============================================================================

func TestNewStore_Defaults(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{})

	st := s.State()
	assert.True(t, st.SidebarOpen)
	assert.Equal(t, ui.ThemeSystem, st.Theme)
	assert.Empty(t, st.Notifications)
	assert.False(t, st.Loading)
	assert.Equal(t, ui.Modals{}, st.Modals)
	assert.Equal(t, ui.DefaultFilters(), st.Filters)
	assert.Equal(t, ui.Pagination{Page: 1, ItemsPerPage: 10}, st.Pagination)
}

func TestSidebar(t *testing.T) {
	s, mem := newTestStore(t, ui.Settings{})

	s.ToggleSidebar()
	assert.False(t, s.State().SidebarOpen)
	s.ToggleSidebar()
	assert.True(t, s.State().SidebarOpen)
	s.SetSidebarOpen(false)
	assert.False(t, s.State().SidebarOpen)

	assert.Equal(t, 3, mem.Saves(generic.KeyUI))
}

func TestSetLoading_NotPersisted(t *testing.T) {
	s, mem := newTestStore(t, ui.Settings{})

	s.SetLoading(true)

	assert.True(t, s.State().Loading)
	assert.Zero(t, mem.Saves(generic.KeyUI))
}

func TestSetModalOpen_Independent(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{})

	s.SetModalOpen(ui.ModalAddCourse, true)
	s.SetModalOpen(ui.ModalUploadLearners, true)
	s.SetModalOpen(ui.ModalAddCourse, false)

	m := s.State().Modals
	assert.False(t, m.IsOpen(ui.ModalAddCourse))
	assert.True(t, m.IsOpen(ui.ModalUploadLearners))
	assert.False(t, m.IsOpen(ui.ModalCertificatePreview))
}

func TestParseModal_Unknown(t *testing.T) {
	_, err := ui.ParseModal("settings")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// THEME
// =============================================================================

func TestSetTheme_SystemResolvesAgainstPreference(t *testing.T) {
	// GIVEN: A platform that prefers dark
	// WHEN: The theme is set to system
	// THEN: The store keeps "system" but the document receives "dark"

	doc := ui.NewDocument(true)
	s, _ := newTestStore(t, ui.Settings{Appearance: doc, Preference: doc})

	s.SetTheme(ui.ThemeSystem)
	assert.Equal(t, ui.ThemeSystem, s.State().Theme)
	assert.Equal(t, ui.ThemeDark, doc.Applied())

	doc.SetPrefersDark(false)
	assert.Equal(t, ui.ThemeDark, doc.Applied(), "a preference change is not followed")

	s.SetTheme(ui.ThemeSystem)
	assert.Equal(t, ui.ThemeLight, doc.Applied())

	s.SetTheme(ui.ThemeDark)
	assert.Equal(t, ui.ThemeDark, doc.Applied())
}

func TestSetTheme_NoPreferenceMeansLight(t *testing.T) {
	doc := ui.NewDocument(true)
	s, _ := newTestStore(t, ui.Settings{Appearance: doc})

	s.SetTheme(ui.ThemeSystem)

	assert.Equal(t, ui.ThemeLight, doc.Applied())
}

func TestParseTheme(t *testing.T) {
	for _, ok := range []string{"light", "dark", "system"} {
		_, err := ui.ParseTheme(ok)
		assert.NoError(t, err, ok)
	}
	_, err := ui.ParseTheme("sepia")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestNotify_PrependsAndDefaultsToInfo(t *testing.T) {
	s, mem := newTestStore(t, ui.Settings{})

	first := s.Notify(ui.NotificationDraft{Title: "first"})
	second := s.Notify(ui.NotificationDraft{Type: ui.NotifyWarning, Title: "second"})

	got := s.State().Notifications
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, ui.NotifyInfo, got[1].Type)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Zero(t, mem.Saves(generic.KeyUI), "notifications are not persisted")
}

func TestNotify_SuccessExpires(t *testing.T) {
	// GIVEN: A short success TTL
	// WHEN: A success notification is queued
	// THEN: It disappears on its own

	s, _ := newTestStore(t, ui.Settings{SuccessTTL: 20 * time.Millisecond})

	n := s.Notify(ui.NotificationDraft{Type: ui.NotifySuccess, Title: "Saved"})
	require.Len(t, s.State().Notifications, 1)

	assert.Eventually(t, func() bool {
		return len(s.State().Notifications) == 0
	}, time.Second, 5*time.Millisecond, "notification %s should expire", n.ID)
}

func TestNotify_ErrorPersistsUntilRemoved(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{SuccessTTL: 10 * time.Millisecond})

	n := s.Notify(ui.NotificationDraft{Type: ui.NotifyError, Title: "Failed"})
	time.Sleep(50 * time.Millisecond)

	require.Len(t, s.State().Notifications, 1)
	assert.True(t, s.RemoveNotification(n.ID))
	assert.Empty(t, s.State().Notifications)
	assert.False(t, s.RemoveNotification(n.ID), "second removal is a no-op")
}

func TestRemoveNotification_BeforeExpiryIsClean(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{SuccessTTL: 30 * time.Millisecond})

	n := s.Notify(ui.NotificationDraft{Type: ui.NotifySuccess})
	other := s.Notify(ui.NotificationDraft{Type: ui.NotifyInfo})
	require.True(t, s.RemoveNotification(n.ID))
	time.Sleep(60 * time.Millisecond)

	got := s.State().Notifications
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)
}

func TestMarkNotificationRead(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{})
	n := s.Notify(ui.NotificationDraft{Type: ui.NotifyInfo})

	assert.True(t, s.MarkNotificationRead(n.ID))
	assert.True(t, s.MarkNotificationRead(n.ID))
	assert.False(t, s.MarkNotificationRead("missing"))
	assert.True(t, s.State().Notifications[0].Read)
}

func TestClearNotifications(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{SuccessTTL: time.Hour})
	s.Notify(ui.NotificationDraft{Type: ui.NotifySuccess})
	s.Notify(ui.NotificationDraft{Type: ui.NotifyError})

	s.ClearNotifications()

	assert.Empty(t, s.State().Notifications)
}

func TestClose_StopsTimers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := ui.NewStore(ui.Settings{SuccessTTL: 10 * time.Millisecond})
	for i := 0; i < 20; i++ {
		s.Notify(ui.NotificationDraft{Type: ui.NotifySuccess})
	}
	s.Close()

	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, len(s.State().Notifications), 20)

	n := s.Notify(ui.NotificationDraft{Type: ui.NotifySuccess})
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n.ID, s.State().Notifications[0].ID, "no timers after Close")
}

// =============================================================================
// FILTERS & PAGINATION
// =============================================================================

func TestSetFilters_Partial(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{})

	s.SetFilters(ui.FilterPatch{Search: ptr("john")})
	s.SetFilters(ui.FilterPatch{CompletionStatus: []certs.CompletionStatus{certs.Completed}})

	f := s.State().Filters
	assert.Equal(t, "john", f.Search)
	assert.Equal(t, certs.AnyValue, f.Organization)
	assert.Equal(t, []certs.CompletionStatus{certs.Completed}, f.CompletionStatus)
}

func TestSetFilters_StateIsACopy(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{})
	s.SetFilters(ui.FilterPatch{CompletionStatus: []certs.CompletionStatus{certs.Completed}})

	st := s.State()
	st.Filters.CompletionStatus[0] = certs.Blocked

	assert.Equal(t, certs.Completed, s.State().Filters.CompletionStatus[0])
}

func TestFilterPatch_Validate(t *testing.T) {
	assert.NoError(t, ui.FilterPatch{DateRange: &ui.DateRange{From: "2024-01-01"}}.Validate())
	assert.ErrorIs(t, ui.FilterPatch{DateRange: &ui.DateRange{To: "01/02/2024"}}.Validate(), generic.ErrInvalidInput)
}

func TestFilters_QueryCoversWholeDay(t *testing.T) {
	f := ui.DefaultFilters()
	f.DateRange = ui.DateRange{From: "2024-02-01", To: "2024-02-10"}

	q := f.Query()

	late := certs.LearnerProgress{LastActivity: time.Date(2024, time.February, 10, 23, 30, 0, 0, time.UTC)}
	early := certs.LearnerProgress{LastActivity: time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)}
	assert.True(t, q.Matches(late))
	assert.False(t, q.Matches(early))
}

func TestSetPagination(t *testing.T) {
	s, _ := newTestStore(t, ui.Settings{})

	s.SetPagination(ui.PaginationPatch{Page: ptr(3), TotalItems: ptr(42)})

	assert.Equal(t, ui.Pagination{Page: 3, ItemsPerPage: 10, TotalItems: 42}, s.State().Pagination)
	assert.Error(t, ui.PaginationPatch{Page: ptr(0)}.Validate())
	assert.Error(t, ui.PaginationPatch{ItemsPerPage: ptr(-1)}.Validate())
	assert.Error(t, ui.PaginationPatch{TotalItems: ptr(-1)}.Validate())
}

func TestResetFilters_Idempotent(t *testing.T) {
	// GIVEN: Filters and pagination have been changed
	// WHEN: ResetFilters is called twice
	// THEN: Both calls leave the same state, equal to the defaults

	s, _ := newTestStore(t, ui.Settings{})
	s.SetFilters(ui.FilterPatch{Search: ptr("x"), Organization: ptr("Acme Corp")})
	s.SetPagination(ui.PaginationPatch{Page: ptr(4)})

	s.ResetFilters()
	once := s.State()
	s.ResetFilters()
	twice := s.State()

	if diff := cmp.Diff(once, twice, ignoreVersion); diff != "" {
		t.Errorf("second reset changed state (-once +twice):\n%s", diff)
	}
	assert.Equal(t, ui.DefaultFilters(), twice.Filters)
	assert.Equal(t, ui.DefaultPagination(), twice.Pagination)
}

// =============================================================================
// HYDRATE
// =============================================================================

func TestHydrate_RestoresPersistedSubset(t *testing.T) {
	doc := ui.NewDocument(false)
	first, mem := newTestStore(t, ui.Settings{})
	first.SetSidebarOpen(false)
	first.SetTheme(ui.ThemeDark)
	first.SetModalOpen(ui.ModalAddOrganization, true)
	first.SetFilters(ui.FilterPatch{Course: ptr("JavaScript Fundamentals")})
	first.Notify(ui.NotificationDraft{Type: ui.NotifyError, Title: "not persisted"})

	second := ui.NewStore(ui.Settings{Appearance: doc, Preference: doc}, generic.WithPersister(mem))
	t.Cleanup(second.Close)
	require.NoError(t, second.Hydrate(context.Background()))

	st := second.State()
	assert.False(t, st.SidebarOpen)
	assert.Equal(t, ui.ThemeDark, st.Theme)
	assert.True(t, st.Modals.AddOrganization)
	assert.Equal(t, "JavaScript Fundamentals", st.Filters.Course)
	assert.Empty(t, st.Notifications)
	assert.Equal(t, ui.ThemeDark, doc.Applied(), "stored theme is re-applied")
}

func TestHydrate_ReadsDateRangeKeys(t *testing.T) {
	// GIVEN: A ui-storage snapshot written with startDate/endDate keys
	// WHEN: The store hydrates
	// THEN: The date range is restored and saved back under the same keys

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Save(ctx, generic.KeyUI, []byte(
		`{"sidebarOpen":true,"theme":"light","filters":{"organization":"All","course":"All",`+
			`"dateRange":{"startDate":"2024-02-01","endDate":"2024-02-10"}},"pagination":{"currentPage":1,"itemsPerPage":10}}`)))
	s := ui.NewStore(ui.Settings{}, generic.WithPersister(mem))
	t.Cleanup(s.Close)

	require.NoError(t, s.Hydrate(ctx))
	assert.Equal(t, ui.DateRange{From: "2024-02-01", To: "2024-02-10"}, s.State().Filters.DateRange)

	s.SetSidebarOpen(false)
	data, err := mem.Load(ctx, generic.KeyUI)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dateRange":{"startDate":"2024-02-01","endDate":"2024-02-10"}`)
}

func TestHydrate_RepairsBadValues(t *testing.T) {
	mem := store.NewMemory()
	raw := `{"sidebarOpen":true,"theme":"neon","pagination":{"currentPage":0,"itemsPerPage":10}}`
	require.NoError(t, mem.Save(context.Background(), generic.KeyUI, []byte(raw)))

	s := ui.NewStore(ui.Settings{}, generic.WithPersister(mem))
	t.Cleanup(s.Close)
	require.NoError(t, s.Hydrate(context.Background()))

	st := s.State()
	assert.Equal(t, ui.ThemeSystem, st.Theme)
	assert.Equal(t, ui.DefaultPagination(), st.Pagination)
}
