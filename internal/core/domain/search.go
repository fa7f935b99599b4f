package domain

// DefaultTopK is the number of results returned when none is requested.
const DefaultTopK = 5

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// DocumentType restricts candidates to one category; empty means all.
	DocumentType string

	// TopK is the maximum number of results. Zero or less means the
	// service default, DefaultTopK unless configured.
	TopK int

	// UserID attributes the query in the query log.
	UserID *int64
}

// SearchMode records which ranking path produced a result set.
type SearchMode string

// Ranking paths.
const (
	// SearchModeVector ranks by cosine similarity of embeddings.
	SearchModeVector SearchMode = "vector"

	// SearchModeKeyword ranks by the fraction of query terms present.
	SearchModeKeyword SearchMode = "keyword"
)

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// SearchResult is a single retrieved chunk with its parent document context.
type SearchResult struct {
	ChunkID       int64
	DocumentID    int64
	DocumentTitle string
	DocumentType  string
	ChunkIndex    int
	Content       string

	// Similarity is a cosine similarity in [-1, 1] on the vector path or a
	// keyword overlap ratio in (0, 1] on the fallback path.
	Similarity float64
}

// Citation identifies a document that contributed to a generated answer.
type Citation struct {
	DocumentID    int64
	DocumentTitle string
	DocumentType  string
	Similarity    float64
}

// Answer is a generated response together with the chunks it drew on.
type Answer struct {
	Response string
	Sources  []Citation
}

// CitationsFrom turns search results into citations, in rank order.
func CitationsFrom(results []SearchResult) []Citation {
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, Citation{
			DocumentID:    r.DocumentID,
			DocumentTitle: r.DocumentTitle,
			DocumentType:  r.DocumentType,
			Similarity:    r.Similarity,
		})
	}
	return citations
}

// CandidateChunk is a chunk joined with the document fields needed to
// present it as a SearchResult.
type CandidateChunk struct {
	Chunk         Chunk
	DocumentTitle string
	DocumentType  string
}

// ToResult converts a candidate into a scored SearchResult.
func (c CandidateChunk) ToResult(score float64) SearchResult {
	return SearchResult{
		ChunkID:       c.Chunk.ID,
		DocumentID:    c.Chunk.DocumentID,
		DocumentTitle: c.DocumentTitle,
		DocumentType:  c.DocumentType,
		ChunkIndex:    c.Chunk.Index,
		Content:       c.Chunk.Content,
		Similarity:    score,
	}
}
