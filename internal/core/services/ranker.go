package services

import (
	"math"
	"sort"
	"strings"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b computed in float64.
// Empty, mismatched or zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankByVector scores candidates with an embedding against query and returns
// the topK best, regardless of how low they score. Ties keep candidate order.
func RankByVector(query []float32, candidates []domain.CandidateChunk, topK int) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if !c.Chunk.HasEmbedding() {
			continue
		}
		results = append(results, c.ToResult(Cosine(query, c.Chunk.Embedding)))
	}
	return topResults(results, topK)
}

// RankByKeyword scores candidates by the fraction of lower-cased query terms
// found as substrings of the lower-cased chunk text. Candidates matching no
// term are dropped.
func RankByKeyword(query string, candidates []domain.CandidateChunk, topK int) []domain.SearchResult {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []domain.SearchResult{}
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		content := strings.ToLower(c.Chunk.Content)
		matches := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		results = append(results, c.ToResult(float64(matches)/float64(len(terms))))
	}
	return topResults(results, topK)
}

// hasEmbeddings reports whether any candidate can take part in vector ranking.
func hasEmbeddings(candidates []domain.CandidateChunk) bool {
	for _, c := range candidates {
		if c.Chunk.HasEmbedding() {
			return true
		}
	}
	return false
}

func topResults(results []domain.SearchResult, topK int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
