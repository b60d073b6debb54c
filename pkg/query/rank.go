package query

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// Terms splits a keyword query into distinct lower-cased words.
func Terms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

// Score counts the terms found anywhere in the record's organization,
// category, location and description.
func Score(r models.Record, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(strings.Join([]string{r.Organization, r.Category, r.Location, r.Description}, " "))
	score := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			score++
		}
	}
	return score
}

// Rank returns a new slice ordered by descending score for query, then by
// ascending deadline. With an empty query every score is 0 and records are
// ordered by deadline alone. Equal keys keep their input order.
func Rank(records []models.Record, query string) []models.Record {
	terms := Terms(query)
	scores := make([]int, len(records))
	idx := make([]int, len(records))
	for i := range records {
		idx[i] = i
		scores[i] = Score(records[i], terms)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return records[ia].Deadline.Before(records[ib].Deadline)
	})

	out := make([]models.Record, len(records))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}

// Search filters records and ranks the matches.
func Search(records []models.Record, f Filter, query string) []models.Record {
	return Rank(f.Apply(records), query)
}
