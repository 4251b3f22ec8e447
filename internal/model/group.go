package model

// Occurrence is one appearance of a tender in the bulletin.
type Occurrence struct {
	Date *Date  `json:"date"`
	URL  string `json:"url"`
}

// AggregatedGroup collects every occurrence of one (title, authority) pair.
// Two records with the same title but different authority are distinct groups.
type AggregatedGroup struct {
	Title     string       `json:"title"`
	Authority string       `json:"authority"`
	Tenders   []Occurrence `json:"tenders"`
}

// GroupKey identifies an AggregatedGroup.
type GroupKey struct {
	Title     string
	Authority string
}

// Key returns the identity of the group.
func (g AggregatedGroup) Key() GroupKey {
	return GroupKey{Title: g.Title, Authority: g.Authority}
}

// KeyOf returns the group identity a record belongs to.
func KeyOf(r TenderRecord) GroupKey {
	return GroupKey{Title: r.Title, Authority: r.Authority}
}

// FirstDate returns the earliest known occurrence date, or nil.
// Tenders are sorted with unknown dates last, so the first entry is enough.
func (g AggregatedGroup) FirstDate() *Date {
	if len(g.Tenders) == 0 {
		return nil
	}
	return g.Tenders[0].Date
}

// LastDate returns the latest known occurrence date, or nil.
func (g AggregatedGroup) LastDate() *Date {
	for i := len(g.Tenders) - 1; i >= 0; i-- {
		if g.Tenders[i].Date != nil {
			return g.Tenders[i].Date
		}
	}
	return nil
}
