package factory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/certdash/config"
	"github.com/warp/certdash/factory"
	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/remote"
	"github.com/warp/certdash/ui"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Persistence.Driver = driver
	cfg.Persistence.Path = filepath.Join(t.TempDir(), "certdash.db")
	cfg.Remote.Latency = remote.Latency{}
	return cfg
}

func build(t *testing.T, cfg *config.Config, reg prometheus.Registerer) *factory.App {
	t.Helper()
	app, err := factory.Build(cfg, zaptest.NewLogger(t), reg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

// =============================================================================
// TESTS
// =============================================================================

func TestBuild_RefreshFillsEveryStore(t *testing.T) {
	app := build(t, testConfig(t, "memory"), nil)
	ctx := context.Background()

	require.NoError(t, app.Hydrate(ctx))
	require.NoError(t, app.Refresh(ctx))

	assert.Equal(t, 3, app.Courses.State().TotalCount)
	assert.Equal(t, 3, app.Learners.State().TotalCount)
	assert.Equal(t, 3, app.Organizations.State().TotalCount)
	assert.Equal(t, 4, app.Progress.State().TotalCount)
	assert.Equal(t, 1, app.Certificates.State().TotalCount)
	assert.False(t, app.Auth.State().IsAuthenticated)
}

func TestBuild_RefreshReportsCancellation(t *testing.T) {
	app := build(t, testConfig(t, "memory"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.Refresh(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEmpty(t, app.Courses.State().Error)
}

func TestBuild_SnapshotsSurviveRestart(t *testing.T) {
	// GIVEN: A session that signed in, selected a course and changed the theme
	// WHEN: A new App is built over the same database and hydrated
	// THEN: The collection, selection, theme and session come back

	cfg := testConfig(t, "sqlite")
	ctx := context.Background()

	first, err := factory.Build(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	require.NoError(t, first.Refresh(ctx))
	require.NoError(t, first.Courses.SetSelected("2"))
	first.UI.SetTheme(ui.ThemeDark)
	require.True(t, first.Auth.Login(ctx, "sop@acme-corp.com", remote.FixturePassword))
	require.NoError(t, first.Close())

	second := build(t, cfg, nil)
	require.NoError(t, second.Hydrate(ctx))

	courses := second.Courses.State()
	assert.Equal(t, 3, courses.TotalCount)
	require.NotNil(t, courses.Selected)
	assert.Equal(t, "2", courses.Selected.ID)
	assert.Equal(t, ui.ThemeDark, second.UI.State().Theme)
	assert.Equal(t, ui.ThemeDark, second.Document.Applied())

	u, ok := second.Auth.CurrentUser()
	require.True(t, ok, "stored token resolves after restart")
	assert.Equal(t, "org-1", u.OrganizationID)
}

func TestBuild_CorruptSnapshotIsReportedNotFatal(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	ctx := context.Background()

	first, err := factory.Build(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, first.Persister.Save(ctx, generic.KeyLearners, []byte("{broken")))
	require.NoError(t, first.Close())

	app := build(t, cfg, nil)
	err = app.Hydrate(ctx)

	assert.Error(t, err)
	assert.Empty(t, app.Learners.State().Items)
	assert.Equal(t, ui.ThemeSystem, app.UI.State().Theme, "other stores still hydrate")
}

func TestBuild_HydrateReportsEveryFailure(t *testing.T) {
	// GIVEN: Two stores with corrupt snapshots
	// WHEN: The app hydrates
	// THEN: Both failures are returned, not only the first

	cfg := testConfig(t, "sqlite")
	ctx := context.Background()

	first, err := factory.Build(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, first.Persister.Save(ctx, generic.KeyLearners, []byte("{broken")))
	require.NoError(t, first.Persister.Save(ctx, generic.KeyUI, []byte("[1,2")))
	require.NoError(t, first.Close())

	app := build(t, cfg, nil)
	err = app.Hydrate(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), generic.KeyLearners)
	assert.Contains(t, err.Error(), generic.KeyUI)
}

func TestBuild_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	app := build(t, testConfig(t, "memory"), reg)

	require.NoError(t, app.Refresh(context.Background()))

	count, err := testutil.GatherAndCount(reg, "certdash_store_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "one series per store for the fetch operation")
}

func TestBuild_RejectsBadRacePolicy(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Stores.RacePolicy = "whatever"

	_, err := factory.Build(cfg, nil, nil)

	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}
