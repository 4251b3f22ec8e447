package model

import (
	"time"

	"github.com/google/uuid"
)

// YearRun is the unit of work for one (query, year) crawl.
// It is created by the fetch command and filled in by each pipeline step.
type YearRun struct {
	// RunID groups all years crawled by one invocation.
	RunID uuid.UUID

	// Query is the search sentence sent to the bulletin.
	Query string

	// Year is the fiscal year in Minguo numbering.
	Year int

	// PageParam is the pagination discovered for this year.
	PageParam PageParam

	// Records accumulates the parsed rows across pages.
	Records []TenderRecord

	// PagesFetched counts page requests that returned a document.
	PagesFetched int

	// PagesFailed counts pages abandoned after a structural parse failure.
	PagesFailed int

	// OutputPath is the CSV file written for this year, if any.
	OutputPath string

	// StartedAt and FinishedAt bracket the crawl of this year.
	StartedAt  time.Time
	FinishedAt time.Time

	// Steps lists the pipeline steps that ran, in order.
	Steps []string

	// Error is the fatal error for this year, if any.
	Error error
}

// NewYearRun creates a YearRun for the given run, query and year.
func NewYearRun(runID uuid.UUID, query string, year int) *YearRun {
	return &YearRun{
		RunID:     runID,
		Query:     query,
		Year:      year,
		PageParam: SinglePage,
		Records:   make([]TenderRecord, 0),
		StartedAt: time.Now(),
	}
}

// GregorianYear returns Year in the Gregorian calendar.
func (r *YearRun) GregorianYear() int {
	return r.Year + EraOffset
}

// RecordCount returns the number of parsed rows.
func (r *YearRun) RecordCount() int {
	return len(r.Records)
}

// Year statuses returned by YearRun.Status.
const (
	StatusFailed   = "failed"
	StatusPartial  = "partial"
	StatusComplete = "complete"
)

// Status returns a short status label for history listings.
func (r *YearRun) Status() string {
	switch {
	case r.Error != nil:
		return StatusFailed
	case r.PagesFailed > 0:
		return StatusPartial
	default:
		return StatusComplete
	}
}
