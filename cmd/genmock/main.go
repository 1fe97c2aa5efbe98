// Command genmock writes synthetic daily gauge exports for demos and tests.
// Each file holds one reading per minute following a smooth daily cycle with
// noise, plus a few injected spikes and malformed rows.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data \
//	  -start 2024-05-01 -days 14 \
//	  -spikes 6 -malformed 3 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

const minutesPerDay = 24 * 60

var header = []string{"No", "Site Name", "Local(yyyy/MM/dd HH:mm:ss)", "Sample Value", "Unit"}

type options struct {
	out       string
	site      string
	start     domain.Date
	days      int
	spikes    int
	malformed int
	base      float64
	amplitude float64
	noise     float64
	seed      int64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "directory to write daily CSV files into")
	site := flag.String("site", "Han River Bridge", "site name written on every row")
	start := flag.String("start", "2024-05-01", "first day (YYYY-MM-DD)")
	days := flag.Int("days", 14, "number of daily files")
	spikes := flag.Int("spikes", 6, "readings to replace with spikes across all days")
	malformed := flag.Int("malformed", 3, "rows to corrupt across all days")
	base := flag.Float64("base", 1.2, "mean level")
	amplitude := flag.Float64("amplitude", 0.3, "daily cycle amplitude")
	noise := flag.Float64("noise", 0.02, "standard deviation of reading noise")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	first, err := domain.ParseDate(*start)
	if err != nil {
		return err
	}
	if *days < 1 {
		return fmt.Errorf("-days must be at least 1")
	}

	opts := options{
		out: *out, site: *site, start: first, days: *days,
		spikes: *spikes, malformed: *malformed,
		base: *base, amplitude: *amplitude, noise: *noise, seed: *seed,
	}
	if err := generate(opts); err != nil {
		return err
	}
	log.Printf("wrote %d daily files to %s", opts.days, opts.out)
	return nil
}

// generate writes opts.days files named YYYY-MM-DD.csv.
func generate(opts options) error {
	rng := rand.New(rand.NewSource(opts.seed))
	spikes := pick(rng, opts.spikes, opts.days)
	broken := pick(rng, opts.malformed, opts.days)

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}

	day0 := time.Date(opts.start.Year, opts.start.Month, opts.start.Day, 0, 0, 0, 0, time.UTC)
	for d := 0; d < opts.days; d++ {
		date := day0.AddDate(0, 0, d)
		rows := make([][]string, 0, minutesPerDay+1)
		rows = append(rows, header)
		for m := 0; m < minutesPerDay; m++ {
			at := date.Add(time.Duration(m)*time.Minute + time.Duration(rng.Intn(60))*time.Second)
			value := opts.base + opts.amplitude*math.Sin(2*math.Pi*float64(m)/minutesPerDay) + rng.NormFloat64()*opts.noise

			key := slot{day: d, minute: m}
			if _, ok := spikes[key]; ok {
				value += (0.5 + rng.Float64()) * opts.amplitude * 3 * sign(rng)
			}
			ts := at.Format(domain.DefaultTimestampLayout)
			val := strconv.FormatFloat(value, 'f', 3, 64)
			if _, ok := broken[key]; ok {
				if rng.Intn(2) == 0 {
					ts = "----/--/-- --:--:--"
				} else {
					val = "-"
				}
			}
			rows = append(rows, []string{strconv.Itoa(m + 1), opts.site, ts, val, "m"})
		}

		path := filepath.Join(opts.out, date.Format(domain.DateLayout)+".csv")
		if err := writeCSV(path, rows); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

type slot struct {
	day    int
	minute int
}

// pick returns n distinct random day/minute slots.
func pick(rng *rand.Rand, n, days int) map[slot]struct{} {
	n = min(n, days*minutesPerDay)
	out := make(map[slot]struct{}, n)
	for len(out) < n {
		out[slot{day: rng.Intn(days), minute: rng.Intn(minutesPerDay)}] = struct{}{}
	}
	return out
}

func sign(rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
