package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/tenderscan/internal/model"
)

// FileName is the SQLite database file created inside the data directory.
const FileName = "tenderscan.db"

// TenderDB provides SQLite-based storage for crawl runs and tender records.
type TenderDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures TenderDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the TenderDB inside dbDir.
func Open(dbDir string, opts Options) (*TenderDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	tdb := &TenderDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := tdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return tdb, nil
}

// Close closes the database connection.
func (tdb *TenderDB) Close() error {
	return tdb.db.Close()
}

// Path returns the database file path.
func (tdb *TenderDB) Path() string {
	return tdb.dbPath
}

func (tdb *TenderDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_query ON crawl_runs(query);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	CREATE TABLE IF NOT EXISTS year_results (
		run_id TEXT NOT NULL REFERENCES crawl_runs(id),
		year INTEGER NOT NULL,
		page_param TEXT,
		pages INTEGER DEFAULT 1,
		pages_fetched INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		records INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		output_path TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		PRIMARY KEY (run_id, year)
	);

	CREATE TABLE IF NOT EXISTS tenders (
		query TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		year INTEGER NOT NULL,
		title TEXT NOT NULL,
		authority TEXT NOT NULL,
		date TEXT,
		url TEXT,
		kind TEXT,
		occurrences INTEGER NOT NULL DEFAULT 1,
		first_run_id TEXT NOT NULL,
		last_run_id TEXT NOT NULL,
		first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (query, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_tenders_first_run ON tenders(first_run_id);
	CREATE INDEX IF NOT EXISTS idx_tenders_group ON tenders(query, title, authority);
	`

	_, err := tdb.db.ExecContext(context.Background(), schema)
	return err
}

// Fingerprint identifies a tender record by its content.
// Records that agree on title, authority, date and URL share a fingerprint.
func Fingerprint(r model.TenderRecord) string {
	fields := []string{r.Title, r.Authority, r.DateString(), r.URL}
	sum := sha3.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// SaveYearRun stores the result of one (query, year) crawl in a single
// transaction. The parent run row is created on first use and its finish
// time is extended by every later year. Tenders already known for the
// query keep their first_run_id and get their last_seen refreshed.
// Identical rows within the year are stored once with an occurrence
// count, the largest count any single crawl of that year has seen.
func (tdb *TenderDB) SaveYearRun(ctx context.Context, run *model.YearRun) error {
	if run == nil {
		return ErrNilRun
	}

	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runID := run.RunID.String()
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (id, query, started_at, finished_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		started_at = MIN(crawl_runs.started_at, excluded.started_at),
		finished_at = MAX(COALESCE(crawl_runs.finished_at, excluded.finished_at), excluded.finished_at)
	`, runID, run.Query, formatTimestamp(run.StartedAt), formatTimestamp(finished))
	if err != nil {
		return fmt.Errorf("failed to save crawl run: %w", err)
	}

	var errText sql.NullString
	if run.Error != nil {
		errText = sql.NullString{String: run.Error.Error(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO year_results (run_id, year, page_param, pages, pages_fetched, pages_failed,
		records, status, error, output_path, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, year) DO UPDATE SET
		page_param = excluded.page_param,
		pages = excluded.pages,
		pages_fetched = excluded.pages_fetched,
		pages_failed = excluded.pages_failed,
		records = excluded.records,
		status = excluded.status,
		error = excluded.error,
		output_path = excluded.output_path,
		finished_at = excluded.finished_at
	`,
		runID,
		run.Year,
		run.PageParam.Name,
		run.PageParam.Count,
		run.PagesFetched,
		run.PagesFailed,
		run.RecordCount(),
		run.Status(),
		errText,
		run.OutputPath,
		formatTimestamp(run.StartedAt),
		formatTimestamp(finished),
	)
	if err != nil {
		return fmt.Errorf("failed to save year result: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tenders (query, fingerprint, year, title, authority, date, url, kind,
		occurrences, first_run_id, last_run_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(query, fingerprint) DO UPDATE SET
		occurrences = MAX(tenders.occurrences, excluded.occurrences),
		last_run_id = excluded.last_run_id,
		last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tender insert: %w", err)
	}
	defer stmt.Close()

	fingerprints := make([]string, 0, len(run.Records))
	unique := make([]model.TenderRecord, 0, len(run.Records))
	counts := make(map[string]int, len(run.Records))
	for _, r := range run.Records {
		fp := Fingerprint(r)
		if counts[fp] == 0 {
			fingerprints = append(fingerprints, fp)
			unique = append(unique, r)
		}
		counts[fp]++
	}

	for i, r := range unique {
		fp := fingerprints[i]
		var date sql.NullString
		if r.Date != nil {
			date = sql.NullString{String: r.Date.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.Query,
			fp,
			run.Year,
			r.Title,
			r.Authority,
			date,
			r.URL,
			r.Kind.String(),
			counts[fp],
			runID,
			runID,
		); err != nil {
			return fmt.Errorf("failed to save tender %q: %w", r.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit year run: %w", err)
	}
	return nil
}

// RunSummary describes one fetch invocation.
type RunSummary struct {
	ID         uuid.UUID
	Query      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Years is the number of fiscal years recorded for the run.
	Years int

	// Records is the total number of rows parsed across years.
	Records int

	// FailedYears counts years whose status is not "complete".
	FailedYears int

	// NewTenders counts tenders first seen by this run.
	NewTenders int
}

// ListRuns returns the runs recorded for query, newest first.
// An empty query lists runs for every query.
func (tdb *TenderDB) ListRuns(ctx context.Context, query string) ([]RunSummary, error) {
	q := `
	SELECT r.id, r.query, r.started_at, COALESCE(r.finished_at, ''),
		COUNT(y.year),
		COALESCE(SUM(y.records), 0),
		COALESCE(SUM(CASE WHEN y.status != 'complete' THEN 1 ELSE 0 END), 0),
		(SELECT COUNT(*) FROM tenders t WHERE t.first_run_id = r.id)
	FROM crawl_runs r
	LEFT JOIN year_results y ON y.run_id = r.id
	`
	args := make([]any, 0, 1)
	if query != "" {
		q += " WHERE r.query = ?"
		args = append(args, query)
	}
	q += " GROUP BY r.id ORDER BY r.started_at DESC"

	rows, err := tdb.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var id, started, finished string
		if err := rows.Scan(&id, &s.Query, &started, &finished,
			&s.Years, &s.Records, &s.FailedYears, &s.NewTenders); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		s.ID = parsed
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		results = append(results, s)
	}

	return results, rows.Err()
}

// YearResult is the stored outcome of one fiscal year in a run.
type YearResult struct {
	Year         int
	PageParam    model.PageParam
	PagesFetched int
	PagesFailed  int
	Records      int
	Status       string
	Error        string
	OutputPath   string
}

// YearResults returns the per-year rows of a run in ascending year order.
func (tdb *TenderDB) YearResults(ctx context.Context, runID uuid.UUID) ([]YearResult, error) {
	rows, err := tdb.db.QueryContext(ctx, `
	SELECT year, COALESCE(page_param, ''), pages, pages_fetched, pages_failed, records,
		status, COALESCE(error, ''), COALESCE(output_path, '')
	FROM year_results
	WHERE run_id = ?
	ORDER BY year
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get year results: %w", err)
	}
	defer rows.Close()

	var results []YearResult
	for rows.Next() {
		var y YearResult
		if err := rows.Scan(&y.Year, &y.PageParam.Name, &y.PageParam.Count, &y.PagesFetched,
			&y.PagesFailed, &y.Records, &y.Status, &y.Error, &y.OutputPath); err != nil {
			return nil, fmt.Errorf("failed to scan year result: %w", err)
		}
		results = append(results, y)
	}

	return results, rows.Err()
}

// ListTenders returns the tenders stored for query, ordered by year then
// date. Records with unknown dates come last within a year. A row seen
// several times in one year is returned that many times, matching the
// year's CSV file.
func (tdb *TenderDB) ListTenders(ctx context.Context, query string) ([]model.TenderRecord, error) {
	return tdb.queryTenders(ctx, `
	SELECT title, authority, COALESCE(date, ''), COALESCE(url, ''), COALESCE(kind, ''), occurrences
	FROM tenders
	WHERE query = ?
	ORDER BY year, date IS NULL, date, title
	`, query)
}

// NewTenders returns the tenders first seen by the given run.
func (tdb *TenderDB) NewTenders(ctx context.Context, runID uuid.UUID) ([]model.TenderRecord, error) {
	return tdb.queryTenders(ctx, `
	SELECT title, authority, COALESCE(date, ''), COALESCE(url, ''), COALESCE(kind, ''), occurrences
	FROM tenders
	WHERE first_run_id = ?
	ORDER BY year, date IS NULL, date, title
	`, runID.String())
}

func (tdb *TenderDB) queryTenders(ctx context.Context, q string, arg string) ([]model.TenderRecord, error) {
	rows, err := tdb.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenders: %w", err)
	}
	defer rows.Close()

	records := make([]model.TenderRecord, 0)
	for rows.Next() {
		var r model.TenderRecord
		var date, kind string
		var occurrences int
		if err := rows.Scan(&r.Title, &r.Authority, &date, &r.URL, &kind, &occurrences); err != nil {
			return nil, fmt.Errorf("failed to scan tender: %w", err)
		}
		if date != "" {
			d, err := model.ParseDate(date)
			if err != nil {
				return nil, fmt.Errorf("stored tender %q: %w", r.Title, err)
			}
			r.Date = d
		}
		r.Kind = model.ParseNoticeKind(kind)
		for range max(occurrences, 1) {
			records = append(records, r)
		}
	}

	return records, rows.Err()
}

// ListQueries returns every query with at least one recorded run.
func (tdb *TenderDB) ListQueries(ctx context.Context) ([]string, error) {
	rows, err := tdb.db.QueryContext(ctx, `
	SELECT DISTINCT query FROM crawl_runs
	ORDER BY query
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}

	return queries, rows.Err()
}

// LatestRun returns the most recent run for query, or nil when none exists.
func (tdb *TenderDB) LatestRun(ctx context.Context, query string) (*RunSummary, error) {
	runs, err := tdb.ListRuns(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// timestampLayout is how Go-side timestamps are written.
const timestampLayout = "2006-01-02 15:04:05.999"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats lists the layouts SQLite or formatTimestamp may produce.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	timestampLayout,
}

// parseTimestamp tries each known layout and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
