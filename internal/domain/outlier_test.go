package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_ScenarioA_WideSpreadIsNotOutlier(t *testing.T) {
	obs := []Observation{obsAt(1, "08:00", 10), obsAt(2, "08:00", 12), obsAt(3, "08:00", 100)}
	buckets := NewAggregator().Aggregate(obs)

	outliers, err := Detect(obs, buckets)

	require.NoError(t, err)
	assert.Empty(t, outliers)
}

func TestDetect_ScenarioB_SingletonSitsOnItsFences(t *testing.T) {
	obs := []Observation{obsAt(1, "09:00", 5)}
	buckets := NewAggregator().Aggregate(obs)

	outliers, err := Detect(obs, buckets)

	require.NoError(t, err)
	assert.Empty(t, outliers)
}

func TestDetect_ScenarioD_Empty(t *testing.T) {
	outliers, err := Detect(nil, NewAggregator().Aggregate(nil))

	require.NoError(t, err)
	require.NotNil(t, outliers)
	assert.Empty(t, outliers)
}

func TestDetect_FlagsValuesOutsideFences(t *testing.T) {
	var obs []Observation
	for day, v := range []float64{10, 11, 12, 13, 14, 12, 11, 13} {
		obs = append(obs, obsAt(day+1, "12:00", v))
	}
	obs = append(obs, obsAt(20, "12:00", 40), obsAt(21, "12:00", -20), obsAt(22, "12:00", 18))
	buckets := NewAggregator().Aggregate(obs)
	s := buckets["12:00"]

	outliers, err := Detect(obs, buckets)

	require.NoError(t, err)
	for _, o := range outliers {
		assert.True(t, o.Value < s.LowerFence || o.Value > s.UpperFence)
		assert.Equal(t, s.LowerFence, o.LowerFence)
		assert.Equal(t, s.UpperFence, o.UpperFence)
		assert.Equal(t, "12:00", o.BucketKey)
	}

	byValue := map[float64]OutlierRecord{}
	for _, o := range outliers {
		byValue[o.Value] = o
	}
	require.Contains(t, byValue, 40.0)
	require.Contains(t, byValue, -20.0)
	assert.Equal(t, DirectionHigh, byValue[40].Direction)
	assert.Equal(t, SeverityExtreme, byValue[40].Severity)
	assert.Equal(t, DirectionLow, byValue[-20].Direction)
	assert.Equal(t, SeverityExtreme, byValue[-20].Severity)

	// Every observation not returned is inside the fences.
	for _, o := range obs {
		if _, flagged := byValue[o.Value]; !flagged {
			assert.True(t, o.Value >= s.LowerFence && o.Value <= s.UpperFence, o.Value)
		}
	}
}

func TestClassify_BoundaryExactness(t *testing.T) {
	s := BucketStatistics{BucketKey: "06:00", Q1: 10, Q3: 20, IQR: 10, LowerFence: -5, UpperFence: 35}

	cases := []struct {
		name      string
		value     float64
		flagged   bool
		direction string
		severity  string
	}{
		{name: "on lower fence", value: -5},
		{name: "on upper fence", value: 35},
		{name: "inside", value: 15},
		{name: "just below lower", value: -5.000001, flagged: true, direction: DirectionLow, severity: SeverityMild},
		{name: "just above upper", value: 35.000001, flagged: true, direction: DirectionHigh, severity: SeverityMild},
		{name: "on upper outer fence", value: 50, flagged: true, direction: DirectionHigh, severity: SeverityMild},
		{name: "beyond upper outer fence", value: 50.5, flagged: true, direction: DirectionHigh, severity: SeverityExtreme},
		{name: "beyond lower outer fence", value: -21, flagged: true, direction: DirectionLow, severity: SeverityExtreme},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, flagged := Classify(Observation{BucketKey: "06:00", Value: tc.value}, s)

			assert.Equal(t, tc.flagged, flagged)
			if tc.flagged {
				assert.Equal(t, tc.direction, rec.Direction)
				assert.Equal(t, tc.severity, rec.Severity)
				assert.Equal(t, tc.value, rec.Value)
			}
		})
	}
}

func TestDetect_UnknownBucket(t *testing.T) {
	obs := []Observation{obsAt(1, "08:00", 1), obsAt(1, "08:01", 2)}
	buckets := NewAggregator().Aggregate(obs[:1])

	outliers, err := Detect(obs, buckets)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBucket)
	assert.Contains(t, err.Error(), "08:01")
	assert.Nil(t, outliers)
}

func TestDetect_SortedByBucketThenTime(t *testing.T) {
	buckets := map[string]BucketStatistics{
		"08:00": {BucketKey: "08:00", LowerFence: 0, UpperFence: 1},
		"07:00": {BucketKey: "07:00", LowerFence: 0, UpperFence: 1},
	}
	obs := []Observation{
		obsAt(3, "08:00", 5),
		obsAt(2, "07:00", 5),
		obsAt(1, "08:00", 5),
		obsAt(1, "07:00", 0.5),
	}

	outliers, err := Detect(obs, buckets)

	require.NoError(t, err)
	require.Len(t, outliers, 3)
	assert.Equal(t, "07:00", outliers[0].BucketKey)
	assert.Equal(t, "08:00", outliers[1].BucketKey)
	assert.Equal(t, "2024-05-01", outliers[1].Day.String())
	assert.Equal(t, "2024-05-03", outliers[2].Day.String())
}
