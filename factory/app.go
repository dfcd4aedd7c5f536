/*
Package factory assembles the dashboard: one instance of every store,
wired to a persister and a data source chosen by configuration.

WIRING:
  config.Persistence.Driver  memory | sqlite      -> generic.Persister
  config.Remote.Mode         mock   | http        -> Sources
  config.Stores.*            race policy, TTLs    -> store options

  Stores are never globals: the App owns them and hands them to the API.

STARTUP:
  app, _ := factory.Build(cfg, logger, prometheus.DefaultRegisterer)
  app.Hydrate(ctx)   // restore snapshots, then confirm the session token
  app.Refresh(ctx)   // FetchAll on every entity store, concurrently
  defer app.Close()

SEE ALSO:
  - config/config.go: Config
  - api/server.go: Router over an App
*/
package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/config"
	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/generic/store"
	"github.com/warp/certdash/remote"
	"github.com/warp/certdash/store/sqlite"
	"github.com/warp/certdash/ui"
)

// Sources are the remote collaborators of every store.
type Sources struct {
	Courses       certs.CourseSource
	Learners      certs.LearnerSource
	Organizations certs.OrganizationSource
	Progress      certs.ProgressSource
	Certificates  certs.CertificateSource
	Auth          auth.Authenticator
}

// MockSources serves every store from m.
func MockSources(m *remote.Mock) Sources {
	return Sources{
		Courses:       m.Courses,
		Learners:      m.Learners,
		Organizations: m.Organizations,
		Progress:      m.Progress,
		Certificates:  m.Certificates,
		Auth:          m.Auth,
	}
}

// HTTPSources serves every store from a backend.
func HTTPSources(c *remote.Client) Sources {
	return Sources{
		Courses:       c.Courses(),
		Learners:      c.Learners(),
		Organizations: c.Organizations(),
		Progress:      c.Progress(),
		Certificates:  c.Certificates(),
		Auth:          c.Auth(),
	}
}

// App owns every store of one dashboard session.
type App struct {
	Logger    *zap.Logger
	Persister generic.Persister
	Document  *ui.Document

	Courses       *certs.CourseStore
	Learners      *certs.LearnerStore
	Organizations *certs.OrganizationStore
	Progress      *certs.ProgressStore
	Certificates  *certs.CertificateStore
	Auth          *auth.Store
	UI            *ui.Store

	closers []func() error
}

// Build creates an App from configuration. reg may be nil to skip metrics.
func Build(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := generic.ParseRacePolicy(cfg.Stores.RacePolicy)
	if err != nil {
		return nil, err
	}

	var (
		persister generic.Persister
		closers   []func() error
	)
	switch cfg.Persistence.Driver {
	case "sqlite":
		db, err := sqlite.New(cfg.Persistence.Path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		persister = db
		closers = append(closers, db.Close)
	default:
		persister = store.NewMemory()
	}

	var sources Sources
	switch cfg.Remote.Mode {
	case "http":
		sources = HTTPSources(remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout))
	default:
		sources = MockSources(remote.NewMock(
			remote.WithLatency(cfg.Remote.Latency),
			remote.WithDownloadBase(cfg.Remote.DownloadBase),
		))
	}

	app := New(sources, ui.Settings{SuccessTTL: cfg.Stores.NotificationTTL},
		cfg.Stores.PrefersDark,
		generic.WithPersister(persister),
		generic.WithLogger(logger),
		generic.WithMetrics(generic.NewMetrics(reg)),
		generic.WithRacePolicy(policy),
	)
	app.closers = append(closers, app.closers...)

	logger.Info("app built",
		zap.String("persistence", cfg.Persistence.Driver),
		zap.String("remote", cfg.Remote.Mode),
		zap.Stringer("race_policy", policy))
	return app, nil
}

// New wires stores over sources. The UI theme is applied to an in-process
// Document whose platform preference is prefersDark; settings.Appearance
// and settings.Preference are overridden.
func New(sources Sources, settings ui.Settings, prefersDark bool, opts ...generic.Option) *App {
	o := generic.BuildOptions(opts...)
	doc := ui.NewDocument(prefersDark)
	settings.Appearance = doc
	settings.Preference = doc

	return &App{
		Logger:        o.Logger,
		Persister:     o.Persister,
		Document:      doc,
		Courses:       certs.NewCourseStore(sources.Courses, opts...),
		Learners:      certs.NewLearnerStore(sources.Learners, opts...),
		Organizations: certs.NewOrganizationStore(sources.Organizations, opts...),
		Progress:      certs.NewProgressStore(sources.Progress, opts...),
		Certificates:  certs.NewCertificateStore(sources.Certificates, opts...),
		Auth:          auth.NewStore(sources.Auth, opts...),
		UI:            ui.NewStore(settings, opts...),
	}
}

// Hydrate restores every store's snapshot concurrently, then checks the
// stored session token. Stores whose snapshot fails to load keep their
// defaults; the failures are returned joined.
func (a *App) Hydrate(ctx context.Context) error {
	hydrators := map[string]func(context.Context) error{
		generic.KeyCourses:       a.Courses.Hydrate,
		generic.KeyLearners:      a.Learners.Hydrate,
		generic.KeyOrganizations: a.Organizations.Hydrate,
		generic.KeyProgress:      a.Progress.Hydrate,
		generic.KeyCertificates:  a.Certificates.Hydrate,
		generic.KeyUI:            a.UI.Hydrate,
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	fail := func(key string, err error) {
		a.Logger.Warn("hydrate failed", zap.String("key", key), zap.Error(err))
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	for key, hydrate := range hydrators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hydrate(ctx); err != nil {
				fail(key, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Auth.Hydrate(ctx); err != nil {
			fail(generic.KeyAuth, err)
		}
		a.Auth.CheckAuth(ctx)
	}()
	wg.Wait()
	return errors.Join(errs...)
}

// Refresh fetches every entity collection concurrently. Remote failures land
// in each store's State.Error; the returned error is the context's, if it
// ended before every fetch settled.
func (a *App) Refresh(ctx context.Context) error {
	var g errgroup.Group
	for _, fetch := range []func(context.Context){
		a.Courses.FetchAll,
		a.Learners.FetchAll,
		a.Organizations.FetchAll,
		a.Progress.FetchAll,
		a.Certificates.FetchAll,
	} {
		g.Go(func() error {
			fetch(ctx)
			return ctx.Err()
		})
	}
	return g.Wait()
}

// Close stops UI timers and releases the persister.
func (a *App) Close() error {
	a.UI.Close()
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
