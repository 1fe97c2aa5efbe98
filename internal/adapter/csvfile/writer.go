package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

// Result file names written into the result directory.
const (
	StatisticsFile  = "statistics_all_day.csv"
	RangesFile      = "range_of_outliers.csv"
	OutliersFile    = "outliers.csv"
	dailyFilePrefix = "statistics_per_day_"
	localTimeLayout = "15:04:05"
	resultFileMode  = 0o644
	resultDirMode   = 0o755
)

var (
	statisticsHeader = []string{"hour_minute", "min", "max", "mean", "median"}
	rangesHeader     = []string{"hour_minute", "count", "mean", "std", "min", "25%", "50%", "75%", "max", "IQR", "lower_bound", "upper_bound"}
	outliersHeader   = []string{"site_name", "local_time", "sample_value", "local_day", "hour_minute", "direction", "severity", "lower_bound", "upper_bound"}
)

// DailyFile returns the per-day statistics file name for d.
func DailyFile(d domain.Date) string {
	return dailyFilePrefix + d.String() + ".csv"
}

type table struct {
	name string
	rows [][]string
}

// Writer implements pipeline.Loader by writing the profile as CSV tables.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer that writes into dir, creating it when needed.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "csv" }

// Load writes every result table of the profile.
func (w *Writer) Load(ctx context.Context, p *domain.Profile) error {
	if err := os.MkdirAll(w.dir, resultDirMode); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	keys := p.BucketKeys()
	tables := []table{
		{StatisticsFile, statisticsRows(keys, p.Statistics)},
		{RangesFile, rangesRows(keys, p.Statistics)},
		{OutliersFile, outlierRows(p.Outliers)},
	}
	for _, d := range p.Daily {
		tables = append(tables, table{DailyFile(d.Day), statisticsRows(sortedKeys(d.Buckets), d.Buckets)})
	}

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeTable(filepath.Join(w.dir, t.name), t.rows); err != nil {
			return err
		}
	}
	w.logger.Info("csv results written", "dir", w.dir, "files", len(tables))
	return nil
}

func statisticsRows(keys []string, stats map[string]domain.BucketStatistics) [][]string {
	rows := make([][]string, 0, len(keys)+1)
	rows = append(rows, statisticsHeader)
	for _, k := range keys {
		s := stats[k]
		rows = append(rows, []string{k, num(s.Min), num(s.Max), num(s.Mean), num(s.Median)})
	}
	return rows
}

func rangesRows(keys []string, stats map[string]domain.BucketStatistics) [][]string {
	rows := make([][]string, 0, len(keys)+1)
	rows = append(rows, rangesHeader)
	for _, k := range keys {
		s := stats[k]
		rows = append(rows, []string{
			k, strconv.Itoa(s.Count), num(s.Mean), num(s.Std), num(s.Min),
			num(s.Q1), num(s.Median), num(s.Q3), num(s.Max),
			num(s.IQR), num(s.LowerFence), num(s.UpperFence),
		})
	}
	return rows
}

func outlierRows(outliers []domain.OutlierRecord) [][]string {
	rows := make([][]string, 0, len(outliers)+1)
	rows = append(rows, outliersHeader)
	for _, o := range outliers {
		rows = append(rows, []string{
			o.SiteName,
			o.Time.Format(localTimeLayout),
			num(o.Value),
			o.Day.String(),
			o.BucketKey,
			o.Direction,
			o.Severity,
			num(o.LowerFence),
			num(o.UpperFence),
		})
	}
	return rows
}

func writeTable(path string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, resultFileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]domain.BucketStatistics) []string {
	p := domain.Profile{Statistics: m}
	return p.BucketKeys()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
