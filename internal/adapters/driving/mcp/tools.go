package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// errEmptyQuery is returned when a tool is called without a query.
var errEmptyQuery = errors.New("query is required")

// SearchInput is the input schema for the search and generate_answer tools.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"the question or keywords to look up"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"restrict results to one document type, e.g. regulation or market_analysis"`
	TopK         int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to retrieve (default 5)"`
}

func (in SearchInput) options() domain.SearchOptions {
	return domain.SearchOptions{DocumentType: in.DocumentType, TopK: in.TopK}
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	ChunkID       int64   `json:"chunk_id"`
	DocumentID    int64   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content"`
	Similarity    float64 `json:"similarity"`
}

// AnswerOutput is the output schema for the generate_answer tool.
type AnswerOutput struct {
	Response string         `json:"response"`
	Sources  []SourceOutput `json:"sources"`
}

// SourceOutput is a document cited by an answer.
type SourceOutput struct {
	DocumentID    int64   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`
	Similarity    float64 `json:"similarity"`
}

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	Title        string `json:"title" jsonschema:"document title"`
	Content      string `json:"content" jsonschema:"full document text"`
	DocumentType string `json:"document_type" jsonschema:"category label used for filtering"`
	Source       string `json:"source,omitempty" jsonschema:"where the document came from, e.g. a file name or URL"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	State      string `json:"state"`
}

// StatisticsInput is the empty input of the usage_statistics tool.
type StatisticsInput struct{}

// StatisticsOutput is the output schema for the usage_statistics tool.
type StatisticsOutput struct {
	TotalDocuments           int            `json:"total_documents"`
	TotalChunks              int            `json:"total_chunks"`
	TotalQueries             int            `json:"total_queries"`
	AverageRelevance         float64        `json:"average_relevance"`
	DocumentTypeDistribution map[string]int `json:"document_type_distribution"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the reference chunks most relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_answer",
		Description: "Answer an appraisal question from the reference corpus, with sources",
	}, s.handleGenerateAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Add a reference document to the corpus",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "usage_statistics",
		Description: "Report corpus size and query volume",
	}, s.handleStatistics)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errEmptyQuery
	}

	results, err := s.ports.RAG.Search(ctx, input.Query, input.options())
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:       r.ChunkID,
			DocumentID:    r.DocumentID,
			DocumentTitle: r.DocumentTitle,
			DocumentType:  r.DocumentType,
			ChunkIndex:    r.ChunkIndex,
			Content:       r.Content,
			Similarity:    r.Similarity,
		}
	}
	return nil, output, nil
}

// handleGenerateAnswer handles the generate_answer tool invocation.
func (s *Server) handleGenerateAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, AnswerOutput{}, errEmptyQuery
	}

	answer, err := s.ports.RAG.GenerateAnswer(ctx, input.Query, input.options())
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	output := AnswerOutput{
		Response: answer.Response,
		Sources:  make([]SourceOutput, len(answer.Sources)),
	}
	for i, c := range answer.Sources {
		output.Sources[i] = SourceOutput{
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			DocumentType:  c.DocumentType,
			Similarity:    c.Similarity,
		}
	}
	return nil, output, nil
}

// handleIngest handles the ingest_document tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	doc, err := s.ports.RAG.Ingest(ctx, domain.IngestRequest{
		Title:        input.Title,
		Content:      input.Content,
		DocumentType: input.DocumentType,
		Source:       input.Source,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{DocumentID: doc.ID, Title: doc.Title, State: doc.State.String()}, nil
}

// handleStatistics handles the usage_statistics tool invocation.
func (s *Server) handleStatistics(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatisticsInput,
) (*mcp.CallToolResult, StatisticsOutput, error) {
	stats, err := s.ports.RAG.UsageStatistics(ctx)
	if err != nil {
		return nil, StatisticsOutput{}, err
	}
	return nil, StatisticsOutput{
		TotalDocuments:           stats.TotalDocuments,
		TotalChunks:              stats.TotalChunks,
		TotalQueries:             stats.TotalQueries,
		AverageRelevance:         stats.AverageRelevance,
		DocumentTypeDistribution: stats.DocumentTypeDistribution,
	}, nil
}
