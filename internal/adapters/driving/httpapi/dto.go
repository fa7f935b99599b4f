package httpapi

import (
	"time"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// DocumentCreate is the request body for creating a document.
type DocumentCreate struct {
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	DocumentType string         `json:"document_type"`
	Source       *string        `json:"source,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ChunkSize    int            `json:"chunk_size,omitempty"`
	ChunkOverlap *int           `json:"chunk_overlap,omitempty"`
}

// toRequest converts the body into an ingest request.
func (d DocumentCreate) toRequest() domain.IngestRequest {
	req := domain.IngestRequest{
		Title:        d.Title,
		Content:      d.Content,
		DocumentType: d.DocumentType,
		Metadata:     d.Metadata,
		ChunkSize:    d.ChunkSize,
		ChunkOverlap: d.ChunkOverlap,
	}
	if d.Source != nil {
		req.Source = *d.Source
	}
	return req
}

// DocumentResponse describes a stored document.
type DocumentResponse struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	DocumentType string         `json:"document_type"`
	Source       *string        `json:"source"`
	State        string         `json:"state"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

func newDocumentResponse(doc *domain.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID,
		Title:        doc.Title,
		DocumentType: doc.DocumentType,
		State:        doc.State.String(),
		Metadata:     doc.Metadata,
		CreatedAt:    formatTime(doc.CreatedAt),
		UpdatedAt:    formatTime(doc.UpdatedAt),
	}
	if doc.Source != "" {
		source := doc.Source
		resp.Source = &source
	}
	return resp
}

// SearchQuery is the request body for search and generate.
type SearchQuery struct {
	Query        string `json:"query"`
	DocumentType string `json:"document_type,omitempty"`
	TopK         int    `json:"top_k,omitempty"`
	UserID       *int64 `json:"user_id,omitempty"`
}

func (q SearchQuery) options() domain.SearchOptions {
	return domain.SearchOptions{
		DocumentType: q.DocumentType,
		TopK:         q.TopK,
		UserID:       q.UserID,
	}
}

// SearchResult is one retrieved chunk.
type SearchResult struct {
	ChunkID       int64   `json:"chunk_id"`
	DocumentID    int64   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content"`
	Similarity    float64 `json:"similarity"`
}

func newSearchResults(results []domain.SearchResult) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			ChunkID:       r.ChunkID,
			DocumentID:    r.DocumentID,
			DocumentTitle: r.DocumentTitle,
			DocumentType:  r.DocumentType,
			ChunkIndex:    r.ChunkIndex,
			Content:       r.Content,
			Similarity:    r.Similarity,
		}
	}
	return out
}

// Source is a document cited by a generated answer.
type Source struct {
	DocumentID    int64   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`
	Similarity    float64 `json:"similarity"`
}

// RAGResponse is a generated answer with its sources.
type RAGResponse struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

func newRAGResponse(answer *domain.Answer) RAGResponse {
	resp := RAGResponse{
		Response: answer.Response,
		Sources:  make([]Source, len(answer.Sources)),
	}
	for i, c := range answer.Sources {
		resp.Sources[i] = Source{
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			DocumentType:  c.DocumentType,
			Similarity:    c.Similarity,
		}
	}
	return resp
}

// RecentQuery summarises a logged query.
type RecentQuery struct {
	ID             int64   `json:"id"`
	QueryText      string  `json:"query_text"`
	UserID         *int64  `json:"user_id"`
	CreatedAt      string  `json:"created_at"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkCount     int     `json:"chunk_count"`
}

// UsageStatistics is the statistics response body.
type UsageStatistics struct {
	TotalDocuments           int            `json:"total_documents"`
	TotalChunks              int            `json:"total_chunks"`
	TotalQueries             int            `json:"total_queries"`
	AverageRelevance         float64        `json:"average_relevance"`
	DocumentTypeDistribution map[string]int `json:"document_type_distribution"`
	RecentQueries            []RecentQuery  `json:"recent_queries"`
}

func newUsageStatistics(stats *domain.UsageStatistics) UsageStatistics {
	resp := UsageStatistics{
		TotalDocuments:           stats.TotalDocuments,
		TotalChunks:              stats.TotalChunks,
		TotalQueries:             stats.TotalQueries,
		AverageRelevance:         stats.AverageRelevance,
		DocumentTypeDistribution: stats.DocumentTypeDistribution,
		RecentQueries:            make([]RecentQuery, len(stats.RecentQueries)),
	}
	if resp.DocumentTypeDistribution == nil {
		resp.DocumentTypeDistribution = map[string]int{}
	}
	for i, q := range stats.RecentQueries {
		resp.RecentQueries[i] = RecentQuery{
			ID:             q.ID,
			QueryText:      q.QueryText,
			UserID:         q.UserID,
			CreatedAt:      formatTime(q.CreatedAt),
			RelevanceScore: q.RelevanceScore,
			ChunkCount:     q.ChunkCount,
		}
	}
	return resp
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	LLMStatus string `json:"llm_status"`
	LLMModel  string `json:"llm_model,omitempty"`
	Embedder  string `json:"embedder"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
