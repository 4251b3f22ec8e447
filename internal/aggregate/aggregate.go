package aggregate

import (
	"cmp"
	"slices"

	"github.com/nao1215/tenderscan/internal/model"
)

// Aggregate groups records by exact (title, authority).
//
// Occurrences in a group are sorted ascending by date with a stable sort;
// records without a date keep their input order after all dated ones.
// Groups are ordered by title, then authority.
func Aggregate(records []model.TenderRecord) []model.AggregatedGroup {
	index := make(map[model.GroupKey]int)
	groups := make([]model.AggregatedGroup, 0)

	for _, r := range records {
		key := model.KeyOf(r)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, model.AggregatedGroup{
				Title:     r.Title,
				Authority: r.Authority,
				Tenders:   make([]model.Occurrence, 0, 1),
			})
		}
		groups[i].Tenders = append(groups[i].Tenders, model.Occurrence{Date: r.Date, URL: r.URL})
	}

	for i := range groups {
		slices.SortStableFunc(groups[i].Tenders, compareOccurrence)
	}
	slices.SortFunc(groups, func(a, b model.AggregatedGroup) int {
		return cmp.Or(
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.Authority, b.Authority),
		)
	})

	return groups
}

// compareOccurrence orders by date with nil dates last.
func compareOccurrence(a, b model.Occurrence) int {
	switch {
	case a.Date == nil && b.Date == nil:
		return 0
	case a.Date == nil:
		return 1
	case b.Date == nil:
		return -1
	case a.Date.Before(*b.Date):
		return -1
	case b.Date.Before(*a.Date):
		return 1
	default:
		return 0
	}
}
