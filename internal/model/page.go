package model

// PageParam describes how a (query, year) result set is paginated.
type PageParam struct {
	// Name is the query parameter that selects a page.
	// Empty when the results fit on a single page.
	Name string

	// Count is the number of pages, always at least 1.
	Count int
}

// SinglePage is the PageParam used when no pagination is present.
var SinglePage = PageParam{Count: 1}

// Paginated reports whether requests need a page selector parameter.
func (p PageParam) Paginated() bool {
	return p.Name != "" && p.Count > 1
}

// PageOutcome classifies how parsing of one results page ended.
type PageOutcome int

const (
	// OutcomeComplete means every row on the page was parsed.
	OutcomeComplete PageOutcome = iota

	// OutcomeEmpty means the page contained the "no results" placeholder
	// row before any further data, or no rows at all.
	OutcomeEmpty

	// OutcomePartial means a structural parse failure stopped the page early.
	// Records parsed before the failure are still returned.
	OutcomePartial
)

// String returns a short label for logs and metrics.
func (o PageOutcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeEmpty:
		return "empty"
	case OutcomePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// PageResult is the outcome of parsing one results page.
type PageResult struct {
	// Records holds the rows parsed before any stop condition.
	Records []TenderRecord

	// Outcome tells complete, empty and broken pages apart.
	Outcome PageOutcome

	// Err is the failure reason when Outcome is OutcomePartial.
	Err error
}

// Failed reports whether the page stopped on a structural failure.
func (r PageResult) Failed() bool {
	return r.Outcome == OutcomePartial
}
