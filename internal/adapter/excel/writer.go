package excel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

// Sheet names in the workbook report.
const (
	SummarySheet    = "Summary"
	StatisticsSheet = "Statistics"
	OutliersSheet   = "Outliers"
	DailySheet      = "Daily"
)

var (
	statisticsHeaders = []any{"hour_minute", "count", "min", "max", "mean", "std", "median", "25%", "75%", "IQR", "lower_bound", "upper_bound"}
	outliersHeaders   = []any{"site_name", "local_day", "local_time", "hour_minute", "sample_value", "direction", "severity", "lower_bound", "upper_bound"}
	dailyHeaders      = []any{"local_day", "hour_minute", "count", "min", "max", "mean", "median"}
)

// Writer implements pipeline.Loader by saving the profile as one .xlsx workbook.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer that saves the workbook at path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

func (w *Writer) Name() string { return "excel" }

func (w *Writer) Load(ctx context.Context, p *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       "Stream Level Profile",
		Subject:     "Minute-of-day level statistics and outliers",
		Creator:     "stream-level-profiler",
		Description: fmt.Sprintf("Run %s", p.RunID),
		Created:     p.GeneratedAt.Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("set document properties: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	sb := sheetBuilder{f: f, header: header}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	if err := sb.summary(p); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := sb.statistics(p); err != nil {
		return fmt.Errorf("create statistics sheet: %w", err)
	}
	if err := sb.outliers(p); err != nil {
		return fmt.Errorf("create outliers sheet: %w", err)
	}
	if len(p.Daily) > 0 {
		if err := sb.daily(p); err != nil {
			return fmt.Errorf("create daily sheet: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("excel report written", "path", w.path, "buckets", len(p.Statistics), "outliers", len(p.Outliers))
	return nil
}

type sheetBuilder struct {
	f      *excelize.File
	header int
}

func (b sheetBuilder) summary(p *domain.Profile) error {
	mild, extreme := p.OutlierCounts()
	rows := [][]any{
		{"Run ID", p.RunID},
		{"Generated At", p.GeneratedAt.Format(time.RFC3339)},
		{"Sites", len(p.Sites)},
		{"Days", p.Load.Days},
		{"Records Read", p.Load.Total},
		{"Observations", p.Load.Loaded},
		{"Dropped (malformed timestamp)", p.Load.MalformedTimestamps},
		{"Dropped (non-numeric value)", p.Load.NonNumericValues},
		{"Buckets", len(p.Statistics)},
		{"Mild Outliers", mild},
		{"Extreme Outliers", extreme},
	}
	for i, r := range rows {
		if err := b.f.SetSheetRow(SummarySheet, cell(1, i+1), &r); err != nil {
			return err
		}
	}
	if err := b.f.SetCellStyle(SummarySheet, "A1", cell(1, len(rows)), b.header); err != nil {
		return err
	}
	if err := b.f.SetColWidth(SummarySheet, "A", "A", 32); err != nil {
		return err
	}
	return b.f.SetColWidth(SummarySheet, "B", "B", 40)
}

func (b sheetBuilder) statistics(p *domain.Profile) error {
	if err := b.newSheet(StatisticsSheet, statisticsHeaders); err != nil {
		return err
	}
	for i, key := range p.BucketKeys() {
		s := p.Statistics[key]
		row := []any{key, s.Count, s.Min, s.Max, s.Mean, s.Std, s.Median, s.Q1, s.Q3, s.IQR, s.LowerFence, s.UpperFence}
		if err := b.f.SetSheetRow(StatisticsSheet, cell(1, i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func (b sheetBuilder) outliers(p *domain.Profile) error {
	if err := b.newSheet(OutliersSheet, outliersHeaders); err != nil {
		return err
	}
	for i, o := range p.Outliers {
		row := []any{o.SiteName, o.Day.String(), o.Time.Format("15:04:05"), o.BucketKey, o.Value, o.Direction, o.Severity, o.LowerFence, o.UpperFence}
		if err := b.f.SetSheetRow(OutliersSheet, cell(1, i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func (b sheetBuilder) daily(p *domain.Profile) error {
	if err := b.newSheet(DailySheet, dailyHeaders); err != nil {
		return err
	}
	r := 2
	for _, d := range p.Daily {
		dp := domain.Profile{Statistics: d.Buckets}
		for _, key := range dp.BucketKeys() {
			s := d.Buckets[key]
			row := []any{d.Day.String(), key, s.Count, s.Min, s.Max, s.Mean, s.Median}
			if err := b.f.SetSheetRow(DailySheet, cell(1, r), &row); err != nil {
				return err
			}
			r++
		}
	}
	return nil
}

// newSheet adds a sheet with a bold, frozen header row.
func (b sheetBuilder) newSheet(name string, headers []any) error {
	if _, err := b.f.NewSheet(name); err != nil {
		return err
	}
	if err := b.f.SetSheetRow(name, "A1", &headers); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(name, "A1", cell(len(headers), 1), b.header); err != nil {
		return err
	}
	return b.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func cell(col, row int) string {
	c, _ := excelize.CoordinatesToCellName(col, row)
	return c
}
