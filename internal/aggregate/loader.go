package aggregate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tenderscan/internal/model"
	"github.com/nao1215/tenderscan/internal/report"
)

// Stats describes what LoadDir read.
type Stats struct {
	// Files is the number of CSV files loaded.
	Files int

	// Records is the number of records returned.
	Records int

	// SkippedRows counts rows dropped because their date could not be parsed.
	SkippedRows int
}

type loaderOptions struct {
	concurrency int
	logger      *slog.Logger
}

// Option configures LoadDir.
type Option func(*loaderOptions)

// WithConcurrency bounds how many files are parsed at once.
func WithConcurrency(n int) Option {
	return func(o *loaderOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *loaderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// FindCSVFiles returns every *.csv file under dir in lexical walk order.
func FindCSVFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".csv" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// LoadDir reads every CSV file under dir. Files are parsed concurrently and
// their records concatenated in file order. A file with a missing column
// or a read error fails the whole load.
func LoadDir(ctx context.Context, dir string, opts ...Option) ([]model.TenderRecord, Stats, error) {
	o := loaderOptions{
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	paths, err := FindCSVFiles(dir)
	if err != nil {
		return nil, Stats{}, err
	}

	type fileResult struct {
		records []model.TenderRecord
		skipped int
	}
	results := make([]fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, skipped, err := loadFile(path, o.logger)
			if err != nil {
				return err
			}
			results[i] = fileResult{records: records, skipped: skipped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Files: len(paths)}
	records := make([]model.TenderRecord, 0)
	for _, r := range results {
		records = append(records, r.records...)
		stats.SkippedRows += r.skipped
	}
	stats.Records = len(records)

	return records, stats, nil
}

func loadFile(path string, logger *slog.Logger) ([]model.TenderRecord, int, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from walking the input directory
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, skipped, err := ReadCSV(f, logger.With("file", path))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return records, skipped, nil
}

// ReadCSV reads records in the per-year CSV format. Columns are located by
// header name, so extra columns and any column order are accepted.
// Rows with a malformed date are skipped and counted.
func ReadCSV(r io.Reader, logger *slog.Logger) (records []model.TenderRecord, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, 0, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	idx := make([]int, len(report.CSVHeader))
	for i, name := range report.CSVHeader {
		c, ok := cols[name]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = c
	}

	records = make([]model.TenderRecord, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		field := func(i int) string {
			if idx[i] < len(row) {
				return row[idx[i]]
			}
			return ""
		}

		record := model.TenderRecord{
			Title:     field(0),
			Authority: field(1),
			URL:       field(3),
		}
		if raw := strings.TrimSpace(field(2)); raw != "" {
			d, err := model.ParseDate(raw)
			if err != nil {
				line, _ := cr.FieldPos(0)
				logger.Warn("skipping row with malformed date", "line", line, "date", raw)
				skipped++
				continue
			}
			record.Date = d
		}
		records = append(records, record)
	}

	return records, skipped, nil
}

// RecordSource lists stored records for a query.
// *database.TenderDB implements it.
type RecordSource interface {
	ListTenders(ctx context.Context, query string) ([]model.TenderRecord, error)
}

// FromStore loads the records stored for query.
func FromStore(ctx context.Context, store RecordSource, query string) ([]model.TenderRecord, error) {
	records, err := store.ListTenders(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored tenders: %w", err)
	}
	return records, nil
}
