// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// appraisal retrieval service. It lets AI assistants search the reference
// corpus, ingest documents and ask grounded questions.
package mcp

import "errors"

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: RAG service is required")
