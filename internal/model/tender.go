package model

import "strings"

// awardMarker is the category text that identifies an award notice row.
const awardMarker = "決標公告"

// NoticeKind distinguishes the two kinds of bulletin rows.
// Award notices publish their date in a different column than tender
// notices, so the kind decides where the row parser looks.
type NoticeKind int

const (
	// NoticeTender is a regular "open for bid" tender notice.
	NoticeTender NoticeKind = iota

	// NoticeAward is an award (決標) notice.
	NoticeAward
)

// KindOf classifies a row by its category cell text.
func KindOf(category string) NoticeKind {
	if strings.Contains(category, awardMarker) {
		return NoticeAward
	}
	return NoticeTender
}

// DateColumn returns the 1-based bulletin column that holds the notice date.
func (k NoticeKind) DateColumn() int {
	if k == NoticeAward {
		return 6
	}
	return 5
}

// DirectTextOnly reports whether only the first direct text node of the
// date cell carries the date. Award cells append extra markup after it.
func (k NoticeKind) DirectTextOnly() bool {
	return k == NoticeAward
}

// String returns the label used in logs, metrics and the database.
func (k NoticeKind) String() string {
	switch k {
	case NoticeTender:
		return "tender"
	case NoticeAward:
		return "award"
	default:
		return "unknown"
	}
}

// ParseNoticeKind is the inverse of String. Unknown labels map to NoticeTender.
func ParseNoticeKind(s string) NoticeKind {
	if s == NoticeAward.String() {
		return NoticeAward
	}
	return NoticeTender
}

// TenderRecord is one row of the bulletin.
type TenderRecord struct {
	// Title is decoded from the obfuscated script payload.
	// Empty when the payload pattern is absent.
	Title string `json:"title"`

	// Authority is the issuing government body.
	Authority string `json:"authority"`

	// Date is the notice date in the Gregorian calendar.
	// Nil when the source cell could not be parsed.
	Date *Date `json:"date"`

	// URL is the absolute detail page URL, or empty when the row has no link.
	URL string `json:"url"`

	// Kind records whether the row was a tender or award notice.
	// It is not part of the CSV or aggregated output.
	Kind NoticeKind `json:"-"`
}

// DateString returns the record date as YYYY-MM-DD, or "" when unknown.
func (r TenderRecord) DateString() string {
	if r.Date == nil {
		return ""
	}
	return r.Date.String()
}
