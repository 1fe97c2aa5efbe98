// Command validate recomputes the profile from the daily exports and checks
// the CSV results written by the profiler against it: bucket parity,
// quantile ordering, fence arithmetic, and outlier classification.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -result-dir result
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/stream-level-profiler/internal/adapter/csvfile"
	"github.com/couchcryptid/stream-level-profiler/internal/domain"
	"github.com/couchcryptid/stream-level-profiler/internal/pipeline"
)

// tolerance absorbs float formatting differences between writer and checker.
const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing daily CSV exports")
	resultDir := flag.String("result-dir", "result", "directory containing profiler CSV results")
	layout := flag.String("layout", domain.DefaultTimestampLayout, "timestamp layout of the exports")
	flag.Parse()

	os.Exit(run(os.Stdout, *dataDir, *resultDir, *layout))
}

func run(out io.Writer, dataDir, resultDir, layout string) int {
	fmt.Fprintln(out, "=== Stream Level Result Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	days, err := csvfile.NewReader(dataDir, csvfile.DefaultColumns, logger).Extract(context.Background())
	if err != nil {
		fmt.Fprintf(out, "FATAL: read exports: %v\n", err)
		return 1
	}
	analyzer := pipeline.NewAnalyzer(domain.NewNormalizer(layout), domain.NewAggregator(), false, logger)
	want, err := analyzer.Analyze(context.Background(), days)
	if err != nil {
		fmt.Fprintf(out, "FATAL: recompute profile: %v\n", err)
		return 1
	}

	stats, err := loadCSV(filepath.Join(resultDir, csvfile.StatisticsFile))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load statistics: %v\n", err)
		return 1
	}
	ranges, err := loadCSV(filepath.Join(resultDir, csvfile.RangesFile))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load ranges: %v\n", err)
		return 1
	}
	outliers, err := loadCSV(filepath.Join(resultDir, csvfile.OutliersFile))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load outliers: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateBucketParity(want, stats, ranges),
		validateQuantileOrdering(ranges),
		validateFences(ranges),
		validateOutliers(want, ranges, outliers),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d read, %d observations, %d buckets, %d outliers\n",
		want.Load.Total, want.Load.Loaded, len(want.Statistics), len(want.Outliers))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func (r csvRow) float(p *phase, col string) float64 {
	v, err := strconv.ParseFloat(r.fields[col], 64)
	if err != nil {
		p.errorf("line %d: column %q: %v", r.lineNum, col, err)
		return math.NaN()
	}
	return v
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = row[j]
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// ── Phase 1: Bucket Parity ──

func validateBucketParity(want *domain.Profile, stats, ranges []csvRow) *phase {
	p := &phase{name: "Phase 1: Bucket Parity (results vs exports)"}

	for name, rows := range map[string][]csvRow{csvfile.StatisticsFile: stats, csvfile.RangesFile: ranges} {
		if len(rows) != len(want.Statistics) {
			p.errorf("%s: %d buckets, recomputed %d", name, len(rows), len(want.Statistics))
		}
		for _, r := range rows {
			key := r.fields["hour_minute"]
			s, ok := want.Statistics[key]
			if !ok {
				p.errorf("%s line %d: bucket %q not in exports", name, r.lineNum, key)
				continue
			}
			for col, v := range map[string]float64{"min": s.Min, "max": s.Max, "mean": s.Mean} {
				if got := r.float(p, col); !near(got, v) {
					p.errorf("%s line %d: %s %s=%g, recomputed %g", name, r.lineNum, key, col, got, v)
				}
			}
		}
	}
	return p
}

// ── Phase 2: Quantile Ordering ──

func validateQuantileOrdering(ranges []csvRow) *phase {
	p := &phase{name: "Phase 2: Quantile Ordering"}
	cols := []string{"min", "25%", "50%", "75%", "max"}
	for _, r := range ranges {
		prev := math.Inf(-1)
		for _, col := range cols {
			v := r.float(p, col)
			if v < prev {
				p.errorf("line %d: %s: %s=%g below previous quantile %g", r.lineNum, r.fields["hour_minute"], col, v, prev)
			}
			prev = v
		}
		if iqr := r.float(p, "IQR"); iqr < 0 {
			p.errorf("line %d: negative IQR %g", r.lineNum, iqr)
		}
	}
	return p
}

// ── Phase 3: Fence Arithmetic ──

func validateFences(ranges []csvRow) *phase {
	p := &phase{name: "Phase 3: Fence Arithmetic"}
	for _, r := range ranges {
		q1, q3, iqr := r.float(p, "25%"), r.float(p, "75%"), r.float(p, "IQR")
		lower, upper := r.float(p, "lower_bound"), r.float(p, "upper_bound")
		if !near(iqr, q3-q1) {
			p.errorf("line %d: IQR %g != 75%% - 25%% (%g)", r.lineNum, iqr, q3-q1)
		}
		if !near(lower, q1-domain.InnerFenceMultiplier*iqr) {
			p.errorf("line %d: lower_bound %g != 25%% - 1.5*IQR", r.lineNum, lower)
		}
		if !near(upper, q3+domain.InnerFenceMultiplier*iqr) {
			p.errorf("line %d: upper_bound %g != 75%% + 1.5*IQR", r.lineNum, upper)
		}
	}
	return p
}

// ── Phase 4: Outlier Classification ──

func validateOutliers(want *domain.Profile, ranges, outliers []csvRow) *phase {
	p := &phase{name: "Phase 4: Outlier Classification"}

	if len(outliers) != len(want.Outliers) {
		p.errorf("outliers.csv has %d rows, recomputed %d", len(outliers), len(want.Outliers))
	}

	fences := make(map[string][2]float64, len(ranges))
	for _, r := range ranges {
		fences[r.fields["hour_minute"]] = [2]float64{r.float(p, "lower_bound"), r.float(p, "upper_bound")}
	}

	for _, r := range outliers {
		key := r.fields["hour_minute"]
		f, ok := fences[key]
		if !ok {
			p.errorf("line %d: outlier in unknown bucket %q", r.lineNum, key)
			continue
		}
		v := r.float(p, "sample_value")
		if v >= f[0] && v <= f[1] {
			p.errorf("line %d: %s value %g lies within fences [%g, %g]", r.lineNum, key, v, f[0], f[1])
		}
		switch dir := r.fields["direction"]; {
		case v < f[0] && dir != domain.DirectionLow, v > f[1] && dir != domain.DirectionHigh:
			p.errorf("line %d: direction %q does not match value %g", r.lineNum, dir, v)
		}
	}
	return p
}
