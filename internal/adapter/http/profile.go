package http

import (
	"net/http"
	"regexp"
	"time"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

var bucketPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type summaryResponse struct {
	RunID           string            `json:"run_id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Sites           []string          `json:"sites"`
	Load            domain.LoadReport `json:"load"`
	Buckets         int               `json:"buckets"`
	Days            int               `json:"days_profiled"`
	MildOutliers    int               `json:"mild_outliers"`
	ExtremeOutliers int               `json:"extreme_outliers"`
}

type listResponse[T any] struct {
	RunID string `json:"run_id"`
	Count int    `json:"count"`
	Items []T    `json:"items"`
}

func handleSummary(w http.ResponseWriter, _ *http.Request, p *domain.Profile) {
	mild, extreme := p.OutlierCounts()
	writeJSON(w, http.StatusOK, summaryResponse{
		RunID:           p.RunID,
		GeneratedAt:     p.GeneratedAt,
		Sites:           p.Sites,
		Load:            p.Load,
		Buckets:         len(p.Statistics),
		Days:            p.Load.Days,
		MildOutliers:    mild,
		ExtremeOutliers: extreme,
	})
}

// handleStatistics lists bucket statistics in key order, optionally limited
// to the inclusive range given by the from and to query parameters.
func handleStatistics(w http.ResponseWriter, r *http.Request, p *domain.Profile) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	for _, k := range []string{from, to} {
		if k != "" && !bucketPattern.MatchString(k) {
			writeError(w, http.StatusBadRequest, "bucket bounds must be HH:MM")
			return
		}
	}

	items := make([]domain.BucketStatistics, 0, len(p.Statistics))
	for _, key := range p.BucketKeys() {
		if (from != "" && key < from) || (to != "" && key > to) {
			continue
		}
		items = append(items, p.Statistics[key])
	}
	writeJSON(w, http.StatusOK, listResponse[domain.BucketStatistics]{RunID: p.RunID, Count: len(items), Items: items})
}

func handleBucket(w http.ResponseWriter, r *http.Request, p *domain.Profile) {
	key := r.PathValue("bucket")
	if !bucketPattern.MatchString(key) {
		writeError(w, http.StatusBadRequest, "bucket must be HH:MM")
		return
	}
	s, ok := p.Statistics[key]
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownBucket.Error()+": "+key)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// handleOutliers lists outliers, filtered by the optional bucket, day,
// severity, and direction query parameters.
func handleOutliers(w http.ResponseWriter, r *http.Request, p *domain.Profile) {
	q := r.URL.Query()
	bucket, severity, direction := q.Get("bucket"), q.Get("severity"), q.Get("direction")

	if bucket != "" && !bucketPattern.MatchString(bucket) {
		writeError(w, http.StatusBadRequest, "bucket must be HH:MM")
		return
	}
	if severity != "" && severity != domain.SeverityMild && severity != domain.SeverityExtreme {
		writeError(w, http.StatusBadRequest, "severity must be mild or extreme")
		return
	}
	if direction != "" && direction != domain.DirectionLow && direction != domain.DirectionHigh {
		writeError(w, http.StatusBadRequest, "direction must be low or high")
		return
	}
	var day domain.Date
	if s := q.Get("day"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		day = d
	}

	items := make([]domain.OutlierRecord, 0, len(p.Outliers))
	for _, o := range p.Outliers {
		switch {
		case bucket != "" && o.BucketKey != bucket,
			severity != "" && o.Severity != severity,
			direction != "" && o.Direction != direction,
			!day.IsZero() && o.Day != day:
			continue
		}
		items = append(items, o)
	}
	writeJSON(w, http.StatusOK, listResponse[domain.OutlierRecord]{RunID: p.RunID, Count: len(items), Items: items})
}
