package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

const utf8BOM = "\ufeff"

// Columns names the header cells that hold the three fields the profiler reads.
type Columns struct {
	Site      string
	Timestamp string
	Value     string
}

// DefaultColumns matches the gauge export format.
var DefaultColumns = Columns{
	Site:      "Site Name",
	Timestamp: "Local(yyyy/MM/dd HH:mm:ss)",
	Value:     "Sample Value",
}

// Reader implements pipeline.Extractor over a directory of daily CSV exports.
type Reader struct {
	dir    string
	cols   Columns
	logger *slog.Logger
}

// NewReader creates a Reader for every *.csv file directly inside dir.
func NewReader(dir string, cols Columns, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, cols: cols, logger: logger}
}

// Extract reads each daily file in name order. A file that cannot be opened
// or lacks a required column fails the whole extraction.
func (r *Reader) Extract(ctx context.Context) ([]domain.RawDay, error) {
	paths, err := r.files()
	if err != nil {
		return nil, err
	}

	days := make([]domain.RawDay, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day, err := readFile(path, r.cols)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("daily file read", "file", day.Source, "rows", len(day.Records))
		days = append(days, day)
	}
	return days, nil
}

func (r *Reader) files() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list data dir %s: %w", r.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(r.dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

func readFile(path string, cols Columns) (domain.RawDay, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawDay{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	day, err := ReadDay(f, filepath.Base(path), cols)
	if err != nil {
		return domain.RawDay{}, fmt.Errorf("%s: %w", path, err)
	}
	return day, nil
}

// ReadDay parses one daily export. Rows may have fewer cells than the header;
// missing cells become empty fields.
func ReadDay(src io.Reader, source string, cols Columns) (domain.RawDay, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return domain.RawDay{}, errors.New("empty file: no header row")
	}
	if err != nil {
		return domain.RawDay{}, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header, cols)
	if err != nil {
		return domain.RawDay{}, err
	}

	day := domain.RawDay{Source: source}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.RawDay{}, fmt.Errorf("read row: %w", err)
		}
		if blank(row) {
			continue
		}
		line, _ := r.FieldPos(0)
		day.Records = append(day.Records, domain.RawRecord{
			SiteName:  cell(row, idx[0]),
			Timestamp: cell(row, idx[1]),
			Value:     cell(row, idx[2]),
			Line:      line,
		})
	}
	return day, nil
}

// columnIndex returns the positions of the site, timestamp, and value columns.
func columnIndex(header []string, cols Columns) ([3]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	var idx [3]int
	var missing []string
	for i, name := range []string{cols.Site, cols.Timestamp, cols.Value} {
		p, ok := pos[strings.TrimSpace(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[i] = p
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("missing required column(s) %q", missing)
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
