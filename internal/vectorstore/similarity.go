package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"docqa/internal/domain"
)

// Cosine returns the cosine similarity of a and b, 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores every vector against query and returns the best k results.
// Ties keep chunk order.
func Rank(query []float32, chunks []domain.Chunk, vectors [][]float32, k int) ([]domain.SearchResult, error) {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != len(query) {
			return nil, fmt.Errorf("%w: query has %d, collection has %d", domain.ErrDimensionMismatch, len(query), len(v))
		}
		scores[i] = Cosine(query, v)
	}
	idxs := argsortDesc(scores)
	if k <= 0 {
		k = DefaultTopK
	}
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Chunk: chunks[j], Score: scores[j]})
	}
	return results, nil
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}
