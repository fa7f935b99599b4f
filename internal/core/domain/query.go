package domain

import "time"

// QueryRecord is an append-only log entry for a retrieval query.
type QueryRecord struct {
	ID     int64
	UserID *int64

	QueryText string

	// QueryEmbedding is nil when the query could not be embedded.
	QueryEmbedding []float32

	// ResultText and RelevanceScore are reserved for answer feedback.
	ResultText     *string
	RelevanceScore *float64

	CreatedAt time.Time

	// Retrieved lists the returned chunks with their 0-based rank.
	Retrieved []RetrievedChunk
}

// RetrievedChunk links a logged query to one returned chunk.
type RetrievedChunk struct {
	ChunkID    int64
	Similarity float64
	Rank       int
}

// RetrievedFrom builds the retrieval links for a result list, ranking from 0.
func RetrievedFrom(results []SearchResult) []RetrievedChunk {
	links := make([]RetrievedChunk, 0, len(results))
	for i, r := range results {
		links = append(links, RetrievedChunk{
			ChunkID:    r.ChunkID,
			Similarity: r.Similarity,
			Rank:       i,
		})
	}
	return links
}
