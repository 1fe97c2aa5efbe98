package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxDropSamples caps how many individual drops a LoadReport keeps.
const maxDropSamples = 20

// Drop describes a record the loader rejected.
type Drop struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// LoadReport counts what happened to the raw records of a load.
type LoadReport struct {
	Days                int    `json:"days"`
	Total               int    `json:"total"`
	Loaded              int    `json:"loaded"`
	Dropped             int    `json:"dropped"`
	MalformedTimestamps int    `json:"malformed_timestamps"`
	NonNumericValues    int    `json:"non_numeric_values"`
	Samples             []Drop `json:"samples,omitempty"`
}

func (r *LoadReport) drop(source string, line int, err error) {
	r.Dropped++
	switch {
	case errors.Is(err, ErrMalformedTimestamp):
		r.MalformedTimestamps++
	case errors.Is(err, ErrNonNumericValue):
		r.NonNumericValues++
	}
	if len(r.Samples) < maxDropSamples {
		r.Samples = append(r.Samples, Drop{Source: source, Line: line, Reason: err.Error()})
	}
}

// SeriesLoader turns raw daily records into observations.
type SeriesLoader struct {
	normalizer *Normalizer
}

// NewSeriesLoader creates a loader that keys records with n. A nil
// normalizer uses the default layout.
func NewSeriesLoader(n *Normalizer) *SeriesLoader {
	if n == nil {
		n = NewNormalizer("")
	}
	return &SeriesLoader{normalizer: n}
}

// Load normalizes every record of every day. Records with a malformed
// timestamp or a non-numeric value are dropped and counted in the report;
// Load itself never fails. Input order is irrelevant.
func (l *SeriesLoader) Load(days []RawDay) ([]Observation, LoadReport) {
	report := LoadReport{Days: len(days)}
	for _, d := range days {
		report.Total += len(d.Records)
	}

	out := make([]Observation, 0, report.Total)
	for _, d := range days {
		for _, rec := range d.Records {
			obs, err := l.observe(d.Source, rec)
			if err != nil {
				report.drop(d.Source, rec.Line, err)
				continue
			}
			out = append(out, obs)
		}
	}
	report.Loaded = len(out)
	return out, report
}

func (l *SeriesLoader) observe(source string, rec RawRecord) (Observation, error) {
	key, err := l.normalizer.Normalize(rec.Timestamp)
	if err != nil {
		return Observation{}, err
	}
	value, err := ParseValue(rec.Value)
	if err != nil {
		return Observation{}, err
	}
	return Observation{
		SiteName:  strings.TrimSpace(rec.SiteName),
		Source:    source,
		Day:       key.Day,
		BucketKey: key.BucketKey,
		Time:      key.Time,
		Value:     value,
	}, nil
}

// ParseValue parses a sample value. Empty strings, NaN and infinities are
// rejected with ErrNonNumericValue.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonNumericValue, s)
	}
	return v, nil
}
