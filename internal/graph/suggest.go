package graph

import (
	"sort"
	"strings"
)

const maxSuggestions = 5

// Suggest returns up to five candidate names textually close to want,
// ranked by edit distance with a bonus for shared prefixes. Used to fill
// the suggestions field of not-found errors.
func Suggest(want string, candidates []string) []string {
	want = strings.ToLower(want)
	if want == "" || len(candidates) == 0 {
		return nil
	}

	type scored struct {
		name string
		cost int
	}
	seen := make(map[string]bool, len(candidates))
	var ranked []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == want || seen[lc] {
			continue
		}
		seen[lc] = true

		cost := levenshtein(want, lc)
		if strings.HasPrefix(lc, want) || strings.HasPrefix(want, lc) {
			cost -= 2
		} else if strings.Contains(lc, want) {
			cost--
		}
		// Wildly different names are noise, not suggestions.
		if cost > len(want)/2+2 {
			continue
		}
		ranked = append(ranked, scored{name: c, cost: cost})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].cost != ranked[j].cost {
			return ranked[i].cost < ranked[j].cost
		}
		return ranked[i].name < ranked[j].name
	})

	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.name
	}
	return out
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
