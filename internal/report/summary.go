package report

import (
	"cmp"
	"maps"
	"slices"

	"github.com/nao1215/tenderscan/internal/model"
)

// defaultTopN is how many groups the summaries list.
const defaultTopN = 10

// Summary holds the figures shown by the text and Markdown writers.
type Summary struct {
	Groups      int
	Occurrences int
	Authorities int
	Undated     int

	// ByYear counts dated occurrences per Gregorian year.
	ByYear map[int]int

	// Top are the groups with the most occurrences.
	Top []model.AggregatedGroup
}

// Summarize computes a Summary. topN limits Top; values below 1 use the default.
func Summarize(groups []model.AggregatedGroup, topN int) Summary {
	if topN < 1 {
		topN = defaultTopN
	}

	s := Summary{
		Groups: len(groups),
		ByYear: make(map[int]int),
	}
	authorities := make(map[string]struct{})
	for _, g := range groups {
		authorities[g.Authority] = struct{}{}
		s.Occurrences += len(g.Tenders)
		for _, o := range g.Tenders {
			if o.Date == nil {
				s.Undated++
				continue
			}
			s.ByYear[o.Date.Year]++
		}
	}
	s.Authorities = len(authorities)

	top := slices.Clone(groups)
	slices.SortStableFunc(top, func(a, b model.AggregatedGroup) int {
		return cmp.Compare(len(b.Tenders), len(a.Tenders))
	})
	if len(top) > topN {
		top = top[:topN]
	}
	s.Top = top

	return s
}

// Years returns the years present in ByYear in ascending order.
func (s Summary) Years() []int {
	return slices.Sorted(maps.Keys(s.ByYear))
}
