package driven

import (
	"context"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite in production and by memory in tests.
type DocumentStore interface {
	// CreateDocument inserts a document and assigns its ID and timestamps.
	CreateDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// ListDocuments returns documents newest first, filtered and paginated.
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// UpdateDocumentState moves a document forward in its lifecycle.
	UpdateDocumentState(ctx context.Context, id int64, state domain.DocumentState) error

	// DeleteDocument removes a document, its chunks and their query links.
	// Returns domain.ErrNotFound if it does not exist.
	DeleteDocument(ctx context.Context, id int64) error

	// CreateChunks inserts chunks and returns their IDs in input order.
	CreateChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error)

	// GetChunks returns a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// UpdateChunkEmbedding sets or replaces a chunk's embedding.
	UpdateChunkEmbedding(ctx context.Context, chunkID int64, embedding []float32) error

	// MarkEmbeddingUnavailable records that a chunk could not be embedded.
	MarkEmbeddingUnavailable(ctx context.Context, chunkID int64) error

	// ListCandidates returns every chunk with its document title and type,
	// ordered by chunk ID. An empty documentType means all documents.
	ListCandidates(ctx context.Context, documentType string) ([]domain.CandidateChunk, error)
}

// QueryStore persists the query log. Records are append-only.
type QueryStore interface {
	// LogQuery appends a query record with its retrieved chunks and returns its ID.
	// Links to chunks that no longer exist are dropped.
	LogQuery(ctx context.Context, record *domain.QueryRecord) (int64, error)

	// UsageStatistics computes totals, type distribution and recent queries.
	UsageStatistics(ctx context.Context) (*domain.UsageStatistics, error)
}
