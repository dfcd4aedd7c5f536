/*
scheduler.go - Background collection refresh

PURPOSE:
  Periodically refetches every entity collection so long-lived dashboards
  pick up remote changes without a manual refresh.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on Start
  - Each run is bounded by the interval so a slow source cannot stack runs
  - Overlapping manual refreshes are safe: stores drop stale responses

USAGE:
  scheduler := NewRefreshScheduler(app, 5*time.Minute, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - factory/app.go: App.Refresh
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher is what the scheduler drives. *factory.App satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshScheduler refetches collections on a ticker.
type RefreshScheduler struct {
	Target   Refresher
	Interval time.Duration
	Logger   *zap.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	runs    int
	lastRun time.Time
}

// NewRefreshScheduler creates a scheduler. A zero interval disables it.
func NewRefreshScheduler(target Refresher, interval time.Duration, logger *zap.Logger) *RefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshScheduler{
		Target:   target,
		Interval: interval,
		Logger:   logger.With(zap.String("component", "scheduler")),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Interval <= 0 {
		rs.Logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker.C, rs.stop)

	rs.Logger.Info("started", zap.Duration("interval", rs.Interval))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	if rs.ticker == nil {
		rs.mu.Unlock()
		return
	}
	rs.ticker.Stop()
	rs.ticker = nil
	close(rs.stop)
	rs.mu.Unlock()

	rs.wg.Wait()
	rs.Logger.Info("stopped")
}

func (rs *RefreshScheduler) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow()

	for {
		select {
		case <-tick:
			rs.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow refreshes immediately.
func (rs *RefreshScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout())
	defer cancel()

	start := time.Now()
	if err := rs.Target.Refresh(ctx); err != nil {
		rs.Logger.Warn("refresh interrupted", zap.Error(err))
	}

	rs.mu.Lock()
	rs.runs++
	rs.lastRun = start
	rs.mu.Unlock()
	rs.Logger.Debug("refreshed", zap.Duration("took", time.Since(start)))
}

// Runs returns how many refreshes have completed.
func (rs *RefreshScheduler) Runs() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.runs
}

// NextRunTime returns when the next scheduled refresh will occur.
func (rs *RefreshScheduler) NextRunTime() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastRun.Add(rs.Interval)
}

func (rs *RefreshScheduler) timeout() time.Duration {
	if rs.Interval > 0 {
		return rs.Interval
	}
	return time.Minute
}
