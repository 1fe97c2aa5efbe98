package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

// ProfileAnalyzer implements Analyzer with the domain loader, aggregator,
// and outlier detector.
type ProfileAnalyzer struct {
	loader     *domain.SeriesLoader
	aggregator *domain.Aggregator
	perDay     bool
	logger     *slog.Logger
}

// NewAnalyzer creates a ProfileAnalyzer. When perDay is set the profile also
// carries one statistics table per calendar day.
func NewAnalyzer(n *domain.Normalizer, agg *domain.Aggregator, perDay bool, logger *slog.Logger) *ProfileAnalyzer {
	return &ProfileAnalyzer{
		loader:     domain.NewSeriesLoader(n),
		aggregator: agg,
		perDay:     perDay,
		logger:     logger,
	}
}

func (a *ProfileAnalyzer) Analyze(ctx context.Context, days []domain.RawDay) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	observations, report := a.loader.Load(days)

	profile := domain.NewProfile(uuid.NewString())
	profile.Load = report
	profile.Sites = domain.SiteNames(observations)
	profile.Statistics = a.aggregator.Aggregate(observations)
	if a.perDay {
		profile.Daily = a.aggregator.AggregateDaily(observations)
	}
	if len(profile.Sites) > 1 {
		a.logger.Warn("observations span several sites; profiling them as one stream", "sites", profile.Sites)
	}

	outliers, err := domain.Detect(observations, profile.Statistics)
	if err != nil {
		return nil, fmt.Errorf("detect outliers: %w", err)
	}
	profile.Outliers = outliers

	return profile, nil
}
