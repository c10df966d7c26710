package span

import (
	"sort"
	"strings"
)

// Dedupe resolves overlapping matches into a minimal covering set.
//
// Matches are scanned by ascending start, then descending length, then
// lower-cased text, so the longest match at each start position wins and the
// result does not depend on pattern registration order. A match fully
// contained in an already kept match is dropped. The survivors are sorted by
// (start, end) and exact (start, end, text) duplicates are collapsed.
// Dedupe is idempotent and does not modify its input.
func Dedupe(matches []Match) []Match {
	if len(matches) == 0 {
		return nil
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		return strings.ToLower(a.Text) < strings.ToLower(b.Text)
	})

	kept := make([]Match, 0, len(sorted))
	for _, m := range sorted {
		contained := false
		for _, k := range kept {
			if k.Contains(m) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].End < kept[j].End
	})

	type key struct {
		start, end int
		text       string
	}
	seen := make(map[key]bool, len(kept))
	unique := make([]Match, 0, len(kept))
	for _, m := range kept {
		k := key{m.Start, m.End, m.Text}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, m)
	}
	return unique
}
