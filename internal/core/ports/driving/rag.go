package driving

import (
	"context"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// RAGService is the retrieval entry point used by every driving adapter.
type RAGService interface {
	// Ingest chunks, stores and embeds a document.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Document, error)

	// IngestFile extracts the text of an uploaded file and ingests it.
	// Unsupported or unreadable files return domain.ErrInvalidInput.
	IngestFile(ctx context.Context, file domain.RawDocument, req domain.IngestRequest) (*domain.Document, error)

	// Search returns the chunks most relevant to query.
	// It never fails because embedding is unavailable.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// GenerateAnswer retrieves context for query and asks the LLM to answer.
	// Generation failures are reported in the answer text, not as errors.
	GenerateAnswer(ctx context.Context, query string, opts domain.SearchOptions) (*domain.Answer, error)

	// UsageStatistics reports store totals and recent queries.
	UsageStatistics(ctx context.Context) (*domain.UsageStatistics, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// GetChunks returns a document's chunks ordered by index.
	// It returns domain.ErrNotFound when the document does not exist.
	GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// ListDocuments returns a page of documents.
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// DeleteDocument removes a document and everything that references it.
	DeleteDocument(ctx context.Context, id int64) error

	// Health reports service status and pings the LLM.
	Health(ctx context.Context) domain.Health
}
