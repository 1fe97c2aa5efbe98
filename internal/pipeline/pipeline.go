package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
	"github.com/couchcryptid/stream-level-profiler/internal/observability"
)

const (
	defaultLoadAttempts = 3
	initialBackoff      = 200 * time.Millisecond
	maxBackoff          = 5 * time.Second
)

// Extractor reads every daily input the run should profile.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawDay, error)
}

// Analyzer turns raw daily inputs into a profile.
type Analyzer interface {
	Analyze(ctx context.Context, days []domain.RawDay) (*domain.Profile, error)
}

// Loader writes a finished profile to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, profile *domain.Profile) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetry sets how many times a failing sink is attempted and the first
// backoff between attempts. The backoff doubles up to 5s.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.attempts = attempts
		}
		p.backoff = backoff
	}
}

// Pipeline orchestrates one extract-analyze-load run.
type Pipeline struct {
	extractor Extractor
	analyzer  Analyzer
	loaders   []Loader
	logger    *slog.Logger
	metrics   *observability.Metrics
	attempts  int
	backoff   time.Duration
	ready     atomic.Bool
	latest    atomic.Pointer[domain.Profile]
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, a Analyzer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: e,
		analyzer:  a,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
		attempts:  defaultLoadAttempts,
		backoff:   initialBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed with every sink
// written, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no profiling run has completed yet")
	}
	return nil
}

// Latest returns the most recently analyzed profile, or nil before the first run.
func (p *Pipeline) Latest() *domain.Profile {
	return p.latest.Load()
}

// Run extracts the daily inputs, builds the profile, and hands it to every
// loader. Sink failures do not stop the other sinks; they are joined into
// the returned error alongside the profile.
func (p *Pipeline) Run(ctx context.Context) (*domain.Profile, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	days, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.logger.Info("daily inputs extracted", "days", len(days))

	profile, err := p.analyzer.Analyze(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	p.record(profile)
	p.latest.Store(profile)

	var errs []error
	for _, l := range p.loaders {
		if err := p.loadWithRetry(ctx, l, profile); err != nil {
			p.metrics.SinkErrors.WithLabelValues(l.Name()).Inc()
			p.logger.Error("load profile failed", "sink", l.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
			continue
		}
		p.logger.Debug("profile written", "sink", l.Name())
	}
	if err := errors.Join(errs...); err != nil {
		return profile, err
	}

	elapsed := time.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.LastSuccess.SetToCurrentTime()
	p.ready.Store(true)

	mild, extreme := profile.OutlierCounts()
	p.logger.Info("profiling run complete",
		"run_id", profile.RunID,
		"buckets", len(profile.Statistics),
		"observations", profile.Load.Loaded,
		"outliers_mild", mild,
		"outliers_extreme", extreme,
		"duration", elapsed,
	)
	return profile, nil
}

// record updates run metrics and reports data quality problems.
func (p *Pipeline) record(profile *domain.Profile) {
	report := profile.Load
	p.metrics.RecordsRead.Add(float64(report.Total))
	p.metrics.RecordsDropped.WithLabelValues("malformed_timestamp").Add(float64(report.MalformedTimestamps))
	p.metrics.RecordsDropped.WithLabelValues("non_numeric_value").Add(float64(report.NonNumericValues))
	p.metrics.Observations.Add(float64(report.Loaded))
	p.metrics.Buckets.Set(float64(len(profile.Statistics)))

	mild, extreme := profile.OutlierCounts()
	p.metrics.Outliers.WithLabelValues(domain.SeverityMild).Add(float64(mild))
	p.metrics.Outliers.WithLabelValues(domain.SeverityExtreme).Add(float64(extreme))

	if report.Dropped > 0 {
		p.logger.Warn("records dropped during load",
			"dropped", report.Dropped,
			"total", report.Total,
			"malformed_timestamps", report.MalformedTimestamps,
			"non_numeric_values", report.NonNumericValues,
		)
		for _, d := range report.Samples {
			p.logger.Debug("dropped record", "source", d.Source, "line", d.Line, "reason", d.Reason)
		}
	}
	if profile.Empty() {
		p.logger.Warn("no observations loaded; profile is empty", "days", report.Days)
	}
}

// loadWithRetry attempts l.Load with exponential backoff between attempts.
func (p *Pipeline) loadWithRetry(ctx context.Context, l Loader, profile *domain.Profile) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = l.Load(ctx, profile); err == nil {
			return nil
		}
		if attempt == p.attempts || ctx.Err() != nil {
			break
		}
		p.logger.Warn("load profile failed, retrying", "sink", l.Name(), "attempt", attempt, "error", err)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
