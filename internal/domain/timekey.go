package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimestampLayout matches the "Local(yyyy/MM/dd HH:mm:ss)" export column.
const DefaultTimestampLayout = "2006/01/02 15:04:05"

// TimeKey is the normalized position of a reading: its calendar day and
// intraday bucket.
type TimeKey struct {
	Day       Date
	BucketKey string
	Time      time.Time
}

// Normalizer maps raw timestamps onto (day, bucket) keys.
type Normalizer struct {
	layout string
}

// NewNormalizer creates a Normalizer for the given time layout. An empty
// layout selects DefaultTimestampLayout.
func NewNormalizer(layout string) *Normalizer {
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return &Normalizer{layout: layout}
}

// Layout returns the time layout the normalizer parses.
func (n *Normalizer) Layout() string { return n.layout }

// Normalize parses ts and derives its day and "HH:MM" bucket key. Timestamps
// are wall-clock local time; no zone conversion is applied.
func (n *Normalizer) Normalize(ts string) (TimeKey, error) {
	t, err := time.ParseInLocation(n.layout, strings.TrimSpace(ts), time.UTC)
	if err != nil {
		return TimeKey{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, ts)
	}
	return TimeKey{
		Day:       DateOf(t),
		BucketKey: BucketKey(t),
		Time:      t,
	}, nil
}

// BucketKey formats the hour and minute of t as "HH:MM". Seconds and
// sub-second parts are dropped.
func BucketKey(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
