package vector

import (
	"sort"

	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/pkg/utils"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := utils.L2Norm(a), utils.L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// rank scores every entry against query and returns the best opts.TopK, highest score first.
// Equal scores are ordered by ID so results are deterministic.
func rank(query []float32, entries map[string]entry, opts QueryOptions) []models.QueryResult {
	if len(entries) == 0 {
		return []models.QueryResult{}
	}
	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, 0, len(entries))
	for id, e := range entries {
		scores = append(scores, scored{id: id, score: CosineSimilarity(query, e.values)})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})
	k := opts.TopK
	if k > len(scores) {
		k = len(scores)
	}
	results := make([]models.QueryResult, k)
	for i := 0; i < k; i++ {
		e := entries[scores[i].id]
		r := models.QueryResult{ID: scores[i].id, Score: scores[i].score}
		if opts.IncludeValues {
			r.Values = make([]float32, len(e.values))
			copy(r.Values, e.values)
		}
		if opts.IncludeMetadata {
			r.Metadata = copyMetadata(e.metadata)
		}
		results[i] = r
	}
	return results
}
