package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateChunk_ToResult(t *testing.T) {
	c := CandidateChunk{
		Chunk:         Chunk{ID: 9, DocumentID: 2, Index: 4, Content: "comparable sales"},
		DocumentTitle: "Q3 Market",
		DocumentType:  "market_analysis",
	}

	r := c.ToResult(0.75)

	assert.Equal(t, int64(9), r.ChunkID)
	assert.Equal(t, int64(2), r.DocumentID)
	assert.Equal(t, 4, r.ChunkIndex)
	assert.Equal(t, "comparable sales", r.Content)
	assert.Equal(t, "Q3 Market", r.DocumentTitle)
	assert.Equal(t, "market_analysis", r.DocumentType)
	assert.InDelta(t, 0.75, r.Similarity, 1e-9)
}

// TestCitationsAndRetrieved tests conversion of results keeping rank order
func TestCitationsAndRetrieved(t *testing.T) {
	results := []SearchResult{
		{ChunkID: 5, DocumentID: 1, DocumentTitle: "A", DocumentType: "x", Similarity: 0.9},
		{ChunkID: 3, DocumentID: 2, DocumentTitle: "B", DocumentType: "y", Similarity: 0.4},
	}

	citations := CitationsFrom(results)
	require.Len(t, citations, 2)
	assert.Equal(t, int64(1), citations[0].DocumentID)
	assert.Equal(t, "B", citations[1].DocumentTitle)
	assert.InDelta(t, 0.4, citations[1].Similarity, 1e-9)

	links := RetrievedFrom(results)
	require.Len(t, links, 2)
	assert.Equal(t, RetrievedChunk{ChunkID: 5, Similarity: 0.9, Rank: 0}, links[0])
	assert.Equal(t, 1, links[1].Rank)

	assert.Empty(t, CitationsFrom(nil))
	assert.Empty(t, RetrievedFrom(nil))
}

func TestEmptyStatistics(t *testing.T) {
	s := EmptyStatistics()
	assert.Zero(t, s.TotalDocuments)
	assert.Zero(t, s.TotalChunks)
	assert.Zero(t, s.TotalQueries)
	assert.Zero(t, s.AverageRelevance)
	assert.NotNil(t, s.DocumentTypeDistribution)
	assert.NotNil(t, s.RecentQueries)
}
