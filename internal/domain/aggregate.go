package domain

import (
	"runtime"
	"slices"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Tukey fence multipliers applied to the interquartile range.
const (
	InnerFenceMultiplier = 1.5
	OuterFenceMultiplier = 3.0
)

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithWorkers bounds how many buckets are summarized concurrently.
// Values below 1 are ignored.
func WithWorkers(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// Aggregator computes per-bucket statistics from observations.
type Aggregator struct {
	workers int
}

// NewAggregator creates an Aggregator. By default it uses GOMAXPROCS workers.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate groups observations by bucket key, pooling every day, and
// returns one BucketStatistics per distinct key. An empty input yields an
// empty, non-nil map. The result depends only on the multiset of values per
// bucket.
func (a *Aggregator) Aggregate(observations []Observation) map[string]BucketStatistics {
	groups := make(map[string][]float64)
	for _, o := range observations {
		groups[o.BucketKey] = append(groups[o.BucketKey], o.Value)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// Each goroutine owns one slot; no locking needed.
	summaries := make([]BucketStatistics, len(keys))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, key := range keys {
		g.Go(func() error {
			summaries[i] = Summarize(key, groups[key])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]BucketStatistics, len(summaries))
	for _, s := range summaries {
		out[s.BucketKey] = s
	}
	return out
}

// AggregateDaily computes a separate bucket table for every day present in
// observations, ordered by day.
func (a *Aggregator) AggregateDaily(observations []Observation) []DailyStatistics {
	byDay := make(map[Date][]Observation)
	for _, o := range observations {
		byDay[o.Day] = append(byDay[o.Day], o)
	}

	days := make([]Date, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	slices.SortFunc(days, func(x, y Date) int {
		switch {
		case x.Before(y):
			return -1
		case y.Before(x):
			return 1
		default:
			return 0
		}
	})

	out := make([]DailyStatistics, 0, len(days))
	for _, d := range days {
		out = append(out, DailyStatistics{Day: d, Buckets: a.Aggregate(byDay[d])})
	}
	return out
}

// Summarize computes the statistics of one bucket. values must be non-empty;
// it is not modified.
func Summarize(key string, values []float64) BucketStatistics {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	// The stats helpers only fail on empty input, which callers never pass.
	minV, _ := stats.Min(sorted)
	maxV, _ := stats.Max(sorted)
	mean, _ := stats.Mean(sorted)
	median, _ := stats.Median(sorted)

	var std float64
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}

	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1

	return BucketStatistics{
		BucketKey:  key,
		Count:      len(sorted),
		Min:        minV,
		Max:        maxV,
		Mean:       mean,
		Std:        std,
		Median:     median,
		Q1:         q1,
		Q3:         q3,
		IQR:        iqr,
		LowerFence: q1 - InnerFenceMultiplier*iqr,
		UpperFence: q3 + InnerFenceMultiplier*iqr,
	}
}
