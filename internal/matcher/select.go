package matcher

import (
	"sort"

	"github.com/knowledge-engine/veritas/internal/chunker"
	"github.com/knowledge-engine/veritas/internal/search"
)

type spanKey struct {
	doc   string
	chunk string
}

// Select picks the topK best corpus chunks of every query row, keeps those
// scoring at least threshold and collapses matches that point at the same
// (document, chunk) span, keeping the higher score. The result is ordered by
// descending score; equal scores keep their discovery order.
func Select(m *search.Matrix, query []string, corpus []chunker.Chunk, topK int, threshold float64) []Match {
	if m == nil || topK < 1 {
		return nil
	}

	var kept []Match
	index := make(map[spanKey]int)

	order := make([]int, m.Cols())
	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return row[order[a]] > row[order[b]]
		})

		for _, j := range order[:min(topK, len(order))] {
			score := row[j]
			if score < threshold {
				continue
			}
			candidate := Match{
				QueryChunk:  query[i],
				SourceDoc:   corpus[j].Source,
				SourceChunk: corpus[j].Text,
				Score:       score,
			}
			key := spanKey{doc: candidate.SourceDoc, chunk: candidate.SourceChunk}
			if at, seen := index[key]; seen {
				if candidate.Score > kept[at].Score {
					kept[at] = candidate
				}
				continue
			}
			index[key] = len(kept)
			kept = append(kept, candidate)
		}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Score > kept[b].Score
	})
	return kept
}

// Aggregate is the mean over query rows of each row's best score. It ignores
// thresholds and topK, so it can be positive when no match is selected.
func Aggregate(m *search.Matrix) float64 {
	if m == nil || m.Rows() == 0 || m.Cols() == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < m.Rows(); i++ {
		sum += m.RowMax(i)
	}
	return sum / float64(m.Rows())
}
