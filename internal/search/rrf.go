package search

import "sort"

// rankedList is one contributing retrieval signal: document IDs in rank
// order (best first) and the weight its votes carry in fusion.
type rankedList struct {
	ids    []string
	weight float64
}

type fusedDoc struct {
	id    string
	score float64
}

// fuse combines ranked lists with Reciprocal Rank Fusion: each list
// contributes weight/(k+rank) per document, with 1-based ranks. Documents
// absent from a list contribute nothing from it. Output is sorted by
// descending fused score with ID as a stable tie-break.
func fuse(lists []rankedList, k int) []fusedDoc {
	scores := make(map[string]float64)
	for _, list := range lists {
		for rank, id := range list.ids {
			scores[id] += list.weight / float64(k+rank+1)
		}
	}

	fused := make([]fusedDoc, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, fusedDoc{id: id, score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].id < fused[j].id
	})
	return fused
}
