package aggregate

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/tenderscan/internal/model"
	"github.com/nao1215/tenderscan/internal/report"
)

// TestAggregate tests grouping and ordering.
func TestAggregate(t *testing.T) {
	t.Parallel()

	t.Run("same title and authority form one group", func(t *testing.T) {
		t.Parallel()

		got := Aggregate([]model.TenderRecord{
			{Title: "A", Authority: "X", Date: model.NewDate(2020, 1, 1), URL: "u1"},
			{Title: "A", Authority: "X", Date: model.NewDate(2019, 6, 1), URL: "u2"},
		})
		want := []model.AggregatedGroup{{
			Title:     "A",
			Authority: "X",
			Tenders: []model.Occurrence{
				{Date: model.NewDate(2019, 6, 1), URL: "u2"},
				{Date: model.NewDate(2020, 1, 1), URL: "u1"},
			},
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("different authority is a different group", func(t *testing.T) {
		t.Parallel()

		got := Aggregate([]model.TenderRecord{
			{Title: "A", Authority: "Y", URL: "u1"},
			{Title: "A", Authority: "X", URL: "u2"},
		})
		if len(got) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(got))
		}
		if got[0].Authority != "X" || got[1].Authority != "Y" {
			t.Errorf("expected groups ordered by authority, got %s, %s", got[0].Authority, got[1].Authority)
		}
	})

	t.Run("nil dates sort last in input order", func(t *testing.T) {
		t.Parallel()

		got := Aggregate([]model.TenderRecord{
			{Title: "A", Authority: "X", URL: "n1"},
			{Title: "A", Authority: "X", Date: model.NewDate(2021, 1, 1), URL: "d2"},
			{Title: "A", Authority: "X", URL: "n2"},
			{Title: "A", Authority: "X", Date: model.NewDate(2020, 1, 1), URL: "d1"},
			{Title: "A", Authority: "X", Date: model.NewDate(2020, 1, 1), URL: "d1b"},
		})

		var urls []string
		for _, o := range got[0].Tenders {
			urls = append(urls, o.URL)
		}
		if diff := cmp.Diff([]string{"d1", "d1b", "d2", "n1", "n2"}, urls); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("groups ordered by title", func(t *testing.T) {
		t.Parallel()

		got := Aggregate([]model.TenderRecord{
			{Title: "變電所", Authority: "X"},
			{Title: "B", Authority: "X"},
			{Title: "A", Authority: "Z"},
		})
		var titles []string
		for _, g := range got {
			titles = append(titles, g.Title)
		}
		if diff := cmp.Diff([]string{"A", "B", "變電所"}, titles); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := Aggregate(nil); len(got) != 0 {
			t.Errorf("expected no groups, got %d", len(got))
		}
	})
}

// TestAggregate_EndToEnd tests records through to the JSON document.
func TestAggregate_EndToEnd(t *testing.T) {
	t.Parallel()

	records := []model.TenderRecord{
		{Title: "A", Authority: "X", Date: model.NewDate(2020, 1, 1), URL: "u1"},
		{Title: "A", Authority: "X", Date: model.NewDate(2019, 6, 1), URL: "u2"},
		{Title: "B", Authority: "Y", Date: model.NewDate(2021, 1, 1), URL: "u3"},
	}

	var buf bytes.Buffer
	if _, err := report.NewJSONWriter(&buf, report.WithPrettyPrint()).Write(Aggregate(records)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `[
  {
    "title": "A",
    "authority": "X",
    "tenders": [
      {
        "date": "2019-06-01",
        "url": "u2"
      },
      {
        "date": "2020-01-01",
        "url": "u1"
      }
    ]
  },
  {
    "title": "B",
    "authority": "Y",
    "tenders": [
      {
        "date": "2021-01-01",
        "url": "u3"
      }
    ]
  }
]
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}
