package mcp

import (
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// RAG provides ingestion, retrieval and answer generation.
	RAG driving.RAGService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.RAG == nil {
		return ErrMissingRAGService
	}
	return nil
}
