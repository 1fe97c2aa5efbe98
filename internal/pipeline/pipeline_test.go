package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
	"github.com/couchcryptid/stream-level-profiler/internal/observability"
	"github.com/couchcryptid/stream-level-profiler/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	days []domain.RawDay
	err  error
}

func (m *mockExtractor) Extract(_ context.Context) ([]domain.RawDay, error) {
	return m.days, m.err
}

type mockLoader struct {
	name     string
	failures int // number of calls that fail before succeeding; -1 fails forever
	mu       sync.Mutex
	calls    int
	loaded   []*domain.Profile
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) Load(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures < 0 || m.calls <= m.failures {
		return errors.New("sink unavailable")
	}
	m.loaded = append(m.loaded, p)
	return nil
}

func newTestPipeline(ext pipeline.Extractor, loaders ...pipeline.Loader) *pipeline.Pipeline {
	analyzer := pipeline.NewAnalyzer(domain.NewNormalizer(""), domain.NewAggregator(domain.WithWorkers(2)), true, slog.Default())
	return pipeline.New(ext, analyzer, loaders, slog.Default(), observability.NewMetricsForTesting(), pipeline.WithRetry(3, 0))
}

func day(source string, rows ...[2]string) domain.RawDay {
	d := domain.RawDay{Source: source}
	for i, r := range rows {
		d.Records = append(d.Records, domain.RawRecord{SiteName: "Gauge 7", Timestamp: r[0], Value: r[1], Line: i + 2})
	}
	return d
}

// scenarioDays is the worked example: three days at 08:00 with values 10, 12, 100.
func scenarioDays() []domain.RawDay {
	return []domain.RawDay{
		day("2024-05-01.csv", [2]string{"2024/05/01 08:00:10", "10"}, [2]string{"2024/05/01 08:00:40", "bad"}),
		day("2024-05-02.csv", [2]string{"2024/05/02 08:00:20", "12"}),
		day("2024-05-03.csv", [2]string{"2024/05/03 08:00:30", "100"}, [2]string{"garbage", "1"}),
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	csv := &mockLoader{name: "csv"}
	excel := &mockLoader{name: "excel"}
	p := newTestPipeline(&mockExtractor{days: scenarioDays()}, csv, excel)

	require.Error(t, p.CheckReadiness(context.Background()))
	assert.Nil(t, p.Latest())

	profile, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, profile.RunID)
	assert.Equal(t, fakeClock.Now(), profile.GeneratedAt)
	assert.Equal(t, []string{"Gauge 7"}, profile.Sites)
	assert.Equal(t, domain.LoadReport{
		Days: 3, Total: 5, Loaded: 3, Dropped: 2, MalformedTimestamps: 1, NonNumericValues: 1,
	}, withoutSamples(profile.Load))
	require.Len(t, profile.Statistics, 1)
	assert.InDelta(t, 123.5, profile.Statistics["08:00"].UpperFence, 1e-9)
	assert.Empty(t, profile.Outliers)
	assert.Len(t, profile.Daily, 3)

	require.Len(t, csv.loaded, 1)
	require.Len(t, excel.loaded, 1)
	assert.Same(t, profile, csv.loaded[0])
	assert.Same(t, profile, p.Latest())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_Metrics(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	analyzer := pipeline.NewAnalyzer(nil, domain.NewAggregator(), false, slog.Default())
	p := pipeline.New(&mockExtractor{days: scenarioDays()}, analyzer, nil, slog.Default(), metrics)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 5, testutil.ToFloat64(metrics.RecordsRead), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("malformed_timestamp")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("non_numeric_value")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.Observations), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Buckets), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
	assert.Positive(t, testutil.ToFloat64(metrics.LastSuccess))
}

func TestPipeline_Run_EmptyInput(t *testing.T) {
	ldr := &mockLoader{name: "csv"}
	p := newTestPipeline(&mockExtractor{}, ldr)

	profile, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, profile.Empty())
	assert.NotNil(t, profile.Statistics)
	assert.NotNil(t, profile.Outliers)
	assert.Empty(t, profile.Outliers)
	require.Len(t, ldr.loaded, 1)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ldr := &mockLoader{name: "csv"}
	p := newTestPipeline(&mockExtractor{err: errors.New("disk gone")}, ldr)

	profile, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract")
	assert.Nil(t, profile)
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	ldr := &mockLoader{name: "csv"}
	p := newTestPipeline(&mockExtractor{days: scenarioDays()}, ldr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_RetriesTransientSinkFailure(t *testing.T) {
	flaky := &mockLoader{name: "kafka", failures: 2}
	p := newTestPipeline(&mockExtractor{days: scenarioDays()}, flaky)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, flaky.calls)
	assert.Len(t, flaky.loaded, 1)
}

func TestPipeline_Run_SinkFailureDoesNotStopOtherSinks(t *testing.T) {
	broken := &mockLoader{name: "kafka", failures: -1}
	csv := &mockLoader{name: "csv"}
	p := newTestPipeline(&mockExtractor{days: scenarioDays()}, broken, csv)

	profile, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
	assert.NotNil(t, profile)
	assert.Equal(t, 3, broken.calls)
	assert.Len(t, csv.loaded, 1)
	assert.Same(t, profile, p.Latest())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestProfileAnalyzer_Analyze_FlagsOutliers(t *testing.T) {
	var days []domain.RawDay
	values := []string{"1.0", "1.1", "0.9", "1.0", "1.05", "0.95", "1.0", "9.0"}
	for i, v := range values {
		at := time.Date(2024, time.June, i+1, 14, 30, 5, 0, time.UTC)
		days = append(days, day(at.Format("2006-01-02")+".csv", [2]string{at.Format(domain.DefaultTimestampLayout), v}))
	}

	analyzer := pipeline.NewAnalyzer(nil, domain.NewAggregator(), false, slog.Default())
	profile, err := analyzer.Analyze(context.Background(), days)
	require.NoError(t, err)

	require.Len(t, profile.Outliers, 1)
	got := profile.Outliers[0]

	type outlierSummary struct {
		Bucket    string
		Value     float64
		Day       string
		Direction string
		Severity  string
	}
	want := outlierSummary{Bucket: "14:30", Value: 9.0, Day: "2024-06-08", Direction: domain.DirectionHigh, Severity: domain.SeverityExtreme}
	actual := outlierSummary{Bucket: got.BucketKey, Value: got.Value, Day: got.Day.String(), Direction: got.Direction, Severity: got.Severity}
	if diff := cmp.Diff(want, actual); diff != "" {
		t.Fatalf("outlier mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, profile.Daily)
}

func withoutSamples(r domain.LoadReport) domain.LoadReport {
	r.Samples = nil
	return r
}
