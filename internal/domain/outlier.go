package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// Detect classifies every observation against the fences of its bucket and
// returns the ones outside them. A value equal to a fence is an inlier.
//
// Every observation's bucket must be present in buckets; otherwise Detect
// fails with ErrUnknownBucket and returns no records. The result is sorted by
// bucket key, then time.
func Detect(observations []Observation, buckets map[string]BucketStatistics) ([]OutlierRecord, error) {
	out := make([]OutlierRecord, 0)
	for _, o := range observations {
		s, ok := buckets[o.BucketKey]
		if !ok {
			return nil, fmt.Errorf("%w: %q (%s, %s)", ErrUnknownBucket, o.BucketKey, o.Day, o.Source)
		}
		if rec, flagged := Classify(o, s); flagged {
			out = append(out, rec)
		}
	}

	slices.SortStableFunc(out, func(a, b OutlierRecord) int {
		if c := cmp.Compare(a.BucketKey, b.BucketKey); c != 0 {
			return c
		}
		return a.Time.Compare(b.Time)
	})
	return out, nil
}

// Classify tests a single observation against s. It reports false for
// inliers, including values exactly on a fence.
func Classify(o Observation, s BucketStatistics) (OutlierRecord, bool) {
	var direction string
	switch {
	case o.Value < s.LowerFence:
		direction = DirectionLow
	case o.Value > s.UpperFence:
		direction = DirectionHigh
	default:
		return OutlierRecord{}, false
	}

	severity := SeverityMild
	lowerOuter := s.Q1 - OuterFenceMultiplier*s.IQR
	upperOuter := s.Q3 + OuterFenceMultiplier*s.IQR
	if o.Value < lowerOuter || o.Value > upperOuter {
		severity = SeverityExtreme
	}

	return OutlierRecord{
		Observation: o,
		LowerFence:  s.LowerFence,
		UpperFence:  s.UpperFence,
		Direction:   direction,
		Severity:    severity,
	}, true
}
