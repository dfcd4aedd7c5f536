package generic

import (
	"time"

	"go.uber.org/zap"
)

// RacePolicy decides which of several overlapping FetchAll responses is kept.
type RacePolicy int

const (
	// LatestIssued keeps only the response to the most recently issued
	// request; older responses are dropped when they arrive.
	LatestIssued RacePolicy = iota

	// LastResolved applies every response in arrival order, so the one that
	// resolves last wins regardless of when it was issued.
	LastResolved
)

func (p RacePolicy) String() string {
	switch p {
	case LatestIssued:
		return "latest-issued"
	case LastResolved:
		return "last-resolved"
	}
	return "unknown"
}

// ParseRacePolicy converts a config string into a RacePolicy.
func ParseRacePolicy(s string) (RacePolicy, error) {
	switch s {
	case "", "latest-issued":
		return LatestIssued, nil
	case "last-resolved":
		return LastResolved, nil
	}
	return LatestIssued, &ValidationError{Field: "race_policy", Message: "must be latest-issued or last-resolved"}
}

// Options configures stores. Built from Option values; zero value is usable.
type Options struct {
	Persister   Persister
	Logger      *zap.Logger
	Metrics     *Metrics
	RacePolicy  RacePolicy
	Now         func() time.Time
	SaveTimeout time.Duration
}

// Option mutates Options.
type Option func(*Options)

// WithPersister enables snapshot persistence.
func WithPersister(p Persister) Option {
	return func(o *Options) { o.Persister = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithRacePolicy sets how concurrent FetchAll responses are resolved.
func WithRacePolicy(p RacePolicy) Option {
	return func(o *Options) { o.RacePolicy = p }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		Logger:      zap.NewNop(),
		Now:         time.Now,
		SaveTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
