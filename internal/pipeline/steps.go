package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/tenderscan/internal/crawler"
	"github.com/nao1215/tenderscan/internal/model"
	"github.com/nao1215/tenderscan/internal/report"
)

// YearCrawler crawls every page of one (query, year).
// *crawler.Crawler satisfies it.
type YearCrawler interface {
	CrawlYear(ctx context.Context, query string, year int) (*crawler.YearResult, error)
}

// CrawlStep fills a YearRun from the bulletin.
type CrawlStep struct {
	crawler YearCrawler
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step backed by c.
func NewCrawlStep(c YearCrawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls the year. Whatever was collected before a failure is kept on run.
func (s *CrawlStep) Do(ctx context.Context, run *model.YearRun) error {
	result, err := s.crawler.CrawlYear(ctx, run.Query, run.Year)
	if result != nil {
		run.PageParam = result.PageParam
		run.Records = result.Records
		run.PagesFetched = result.PagesFetched
		run.PagesFailed = result.PagesFailed
	}
	run.FinishedAt = time.Now()

	if err != nil {
		return fmt.Errorf("crawl of year %d failed: %w", run.Year, err)
	}

	s.logger.Info("year crawled",
		"query", run.Query,
		"year", run.Year,
		"pages", run.PageParam.Count,
		"pages_failed", run.PagesFailed,
		"records", run.RecordCount(),
	)
	return nil
}

// CSVStep writes the per-year CSV file.
// It does nothing for a year whose crawl failed. A partial year is written
// only when no file exists yet, so an earlier file is never replaced by
// fewer pages.
type CSVStep struct {
	dir    string
	logger *slog.Logger
}

// NewCSVStep creates a CSV step writing into dir.
func NewCSVStep(dir string, logger *slog.Logger) *CSVStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStep{dir: dir, logger: logger}
}

// Name returns the step name.
func (s *CSVStep) Name() string {
	return "csv"
}

// Do writes the year's records, including an empty header-only file.
func (s *CSVStep) Do(_ context.Context, run *model.YearRun) error {
	if run.Error != nil {
		s.logger.Debug("skipping csv for failed year", "year", run.Year)
		return nil
	}

	if run.Status() == model.StatusPartial {
		existing := filepath.Join(s.dir, report.YearFileName(run.Query, run.Year))
		if _, err := os.Stat(existing); err == nil {
			s.logger.Warn("keeping existing csv for partial year",
				"year", run.Year,
				"path", existing,
				"pages_failed", run.PagesFailed,
			)
			return nil
		}
	}

	path, err := report.WriteYearFile(s.dir, run.Query, run.Year, run.Records)
	if err != nil {
		return err
	}
	run.OutputPath = path
	return nil
}

// YearStore persists a finished YearRun.
// *database.TenderDB satisfies it.
type YearStore interface {
	SaveYearRun(ctx context.Context, run *model.YearRun) error
}

// StoreStep records the year in the database, failed years included.
type StoreStep struct {
	store YearStore
}

// NewStoreStep creates a store step.
func NewStoreStep(store YearStore) *StoreStep {
	return &StoreStep{store: store}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves run.
func (s *StoreStep) Do(ctx context.Context, run *model.YearRun) error {
	if err := s.store.SaveYearRun(ctx, run); err != nil {
		return fmt.Errorf("failed to store year %d: %w", run.Year, err)
	}
	return nil
}
