package search

import (
	"sort"

	"github.com/machimap/machimap/venue"
)

// Facet is one selectable filter value with its record count.
type Facet struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoryFacets enumerates the distinct decoded category values with the
// number of records carrying each.
func CategoryFacets(records []venue.Record) []Facet {
	counts := make(map[string]int)

	for i := range records {
		for _, c := range venue.SplitValues(records[i].Category) {
			counts[c]++
		}
	}

	return toFacets(counts)
}

// AreaFacets enumerates the distinct area values. Areas are single-valued.
func AreaFacets(records []venue.Record) []Facet {
	counts := make(map[string]int)

	for i := range records {
		if a := records[i].Area; a != "" {
			counts[a]++
		}
	}

	return toFacets(counts)
}

func toFacets(counts map[string]int) []Facet {
	ans := make([]Facet, 0, len(counts))

	for v, n := range counts {
		ans = append(ans, Facet{Value: v, Count: n})
	}

	sort.Slice(ans, func(i, j int) bool { return ans[i].Value < ans[j].Value })

	return ans
}
