package domain

import (
	"fmt"
	"time"
)

// DateLayout is the textual form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d falls on an earlier day than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RawRecord is one unparsed row as delivered by an input provider.
type RawRecord struct {
	SiteName  string
	Timestamp string
	Value     string
	Line      int // 1-based line in the source file, 0 when unknown
}

// RawDay groups the records of one daily export.
type RawDay struct {
	Source  string // file name or other origin label
	Records []RawRecord
}

// Observation is one normalized, validated reading.
type Observation struct {
	SiteName  string    `json:"site_name"`
	Source    string    `json:"source,omitempty"`
	Day       Date      `json:"day"`
	BucketKey string    `json:"bucket_key"`
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
}

// BucketStatistics summarizes every observation sharing a bucket key.
type BucketStatistics struct {
	BucketKey  string  `json:"bucket_key"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Median     float64 `json:"median"`
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
}

// DailyStatistics is the bucket table computed from a single day.
type DailyStatistics struct {
	Day     Date                        `json:"day"`
	Buckets map[string]BucketStatistics `json:"buckets"`
}

// Outlier direction and severity labels.
const (
	DirectionLow  = "low"
	DirectionHigh = "high"

	SeverityMild    = "mild"
	SeverityExtreme = "extreme"
)

// OutlierRecord is an observation that fell outside its bucket's fences.
type OutlierRecord struct {
	Observation
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
	Direction  string  `json:"direction"`
	Severity   string  `json:"severity"`
}
