package mcp

import (
	"context"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	results   []domain.SearchResult
	answer    *domain.Answer
	document  *domain.Document
	documents []domain.Document
	stats     *domain.UsageStatistics
	err       error

	lastQuery   string
	lastOptions domain.SearchOptions
	lastIngest  domain.IngestRequest
}

func (m *mockRAGService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.Document, error) {
	m.lastIngest = req
	return m.document, m.err
}

func (m *mockRAGService) IngestFile(_ context.Context, file domain.RawDocument, req domain.IngestRequest) (*domain.Document, error) {
	req.Content = string(file.Content)
	m.lastIngest = req
	return m.document, m.err
}

func (m *mockRAGService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOptions = opts
	return m.results, m.err
}

func (m *mockRAGService) GenerateAnswer(_ context.Context, query string, opts domain.SearchOptions) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastOptions = opts
	return m.answer, m.err
}

func (m *mockRAGService) UsageStatistics(_ context.Context) (*domain.UsageStatistics, error) {
	return m.stats, m.err
}

func (m *mockRAGService) GetDocument(_ context.Context, _ int64) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockRAGService) GetChunks(_ context.Context, _ int64) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockRAGService) ListDocuments(_ context.Context, _ domain.DocumentFilter) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockRAGService) DeleteDocument(_ context.Context, _ int64) error {
	return m.err
}

func (m *mockRAGService) Health(_ context.Context) domain.Health {
	return domain.Health{Status: domain.StatusHealthy}
}
