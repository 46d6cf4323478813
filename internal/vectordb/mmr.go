package vectordb

import "math"

// MMR selects k results from a candidate pool using Maximal Marginal
// Relevance. Candidates must be ordered best-first by query similarity, as
// QueryEmbedding returns them. Each round picks the candidate maximizing
//
//	lambda*sim(candidate, query) - (1-lambda)*max sim(candidate, selected)
//
// so lambda 1 reduces to plain top-k while lower values penalize picking
// chunks that restate what is already selected. Ties keep the original
// similarity rank.
func MMR(candidates []Scored, k int, lambda float64) []Scored {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]Scored, 0, k)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < k {
		bestPos := -1
		bestScore := math.Inf(-1)

		for pos, idx := range remaining {
			c := candidates[idx]

			var penalty float64
			if len(selected) > 0 {
				penalty = math.Inf(-1)
				for _, s := range selected {
					if sim := float64(CosineSimilarity(c.Chunk.Embedding, s.Chunk.Embedding)); sim > penalty {
						penalty = sim
					}
				}
			}

			// Strict comparison keeps the earlier, higher-ranked
			// candidate on ties.
			score := lambda*float64(c.Similarity) - (1-lambda)*penalty
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		selected = append(selected, candidates[remaining[bestPos]])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
