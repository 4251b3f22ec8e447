package model

import (
	"testing"
	"time"
)

// TestKindOf tests category classification and the per-kind date column.
func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category   string
		want       NoticeKind
		column     int
		directText bool
	}{
		{"公開招標公告", NoticeTender, 5, false},
		{"決標公告", NoticeAward, 6, true},
		{"  決標公告(更正) ", NoticeAward, 6, true},
		{"", NoticeTender, 5, false},
		{"限制性招標(經公開評選或公開徵求)公告", NoticeTender, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			t.Parallel()

			got := KindOf(tt.category)
			if got != tt.want {
				t.Fatalf("KindOf(%q) = %v, want %v", tt.category, got, tt.want)
			}
			if got.DateColumn() != tt.column {
				t.Errorf("DateColumn() = %d, want %d", got.DateColumn(), tt.column)
			}
			if got.DirectTextOnly() != tt.directText {
				t.Errorf("DirectTextOnly() = %v, want %v", got.DirectTextOnly(), tt.directText)
			}
		})
	}
}

// TestNoticeKindString tests label round trips.
func TestNoticeKindString(t *testing.T) {
	t.Parallel()

	for _, k := range []NoticeKind{NoticeTender, NoticeAward} {
		if got := ParseNoticeKind(k.String()); got != k {
			t.Errorf("ParseNoticeKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if NoticeKind(9).String() != "unknown" {
		t.Error("expected unknown label")
	}
	if ParseNoticeKind("bogus") != NoticeTender {
		t.Error("expected unknown label to map to tender")
	}
}

// TestTenderRecordDateString tests date rendering for CSV output.
func TestTenderRecordDateString(t *testing.T) {
	t.Parallel()

	r := TenderRecord{Date: NewDate(2021, time.January, 1)}
	if r.DateString() != "2021-01-01" {
		t.Errorf("got %q", r.DateString())
	}

	r.Date = nil
	if r.DateString() != "" {
		t.Errorf("expected empty string for nil date, got %q", r.DateString())
	}
}

// TestGroupDates tests first and last date lookups.
func TestGroupDates(t *testing.T) {
	t.Parallel()

	g := AggregatedGroup{
		Title:     "A",
		Authority: "X",
		Tenders: []Occurrence{
			{Date: NewDate(2019, time.June, 1), URL: "u2"},
			{Date: NewDate(2020, time.January, 1), URL: "u1"},
			{Date: nil, URL: "u3"},
		},
	}

	if got := g.FirstDate(); got == nil || got.String() != "2019-06-01" {
		t.Errorf("FirstDate() = %v", got)
	}
	if got := g.LastDate(); got == nil || got.String() != "2020-01-01" {
		t.Errorf("LastDate() = %v", got)
	}
	if g.Key() != KeyOf(TenderRecord{Title: "A", Authority: "X"}) {
		t.Error("expected record key to match group key")
	}

	var empty AggregatedGroup
	if empty.FirstDate() != nil || empty.LastDate() != nil {
		t.Error("expected nil dates for empty group")
	}
}
