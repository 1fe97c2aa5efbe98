package domain

import (
	"slices"
	"time"
)

// Profile is the outcome of one analysis run.
type Profile struct {
	RunID       string                      `json:"run_id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Load        LoadReport                  `json:"load"`
	Sites       []string                    `json:"sites"`
	Statistics  map[string]BucketStatistics `json:"statistics"`
	Daily       []DailyStatistics           `json:"daily,omitempty"`
	Outliers    []OutlierRecord             `json:"outliers"`
}

// NewProfile starts an empty profile stamped with the domain clock.
func NewProfile(runID string) *Profile {
	return &Profile{
		RunID:       runID,
		GeneratedAt: clock.Now().UTC(),
		Statistics:  map[string]BucketStatistics{},
		Outliers:    []OutlierRecord{},
	}
}

// Empty reports whether no observation survived loading.
func (p *Profile) Empty() bool { return len(p.Statistics) == 0 }

// BucketKeys returns the profile's bucket keys in ascending order.
func (p *Profile) BucketKeys() []string {
	keys := make([]string, 0, len(p.Statistics))
	for k := range p.Statistics {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OutlierCounts returns the number of mild and extreme outliers.
func (p *Profile) OutlierCounts() (mild, extreme int) {
	for _, o := range p.Outliers {
		if o.Severity == SeverityExtreme {
			extreme++
		} else {
			mild++
		}
	}
	return mild, extreme
}

// SiteNames returns the distinct, non-empty site names of observations in
// ascending order.
func SiteNames(observations []Observation) []string {
	seen := make(map[string]struct{})
	for _, o := range observations {
		if o.SiteName != "" {
			seen[o.SiteName] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
