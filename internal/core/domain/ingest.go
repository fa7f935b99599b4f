package domain

import (
	"fmt"
	"strings"
)

// Chunking defaults.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// IngestRequest carries a document to be chunked, embedded and stored.
type IngestRequest struct {
	Title        string
	Content      string
	DocumentType string
	Source       string
	Metadata     map[string]any

	// ChunkSize is measured in characters. Zero means DefaultChunkSize.
	ChunkSize int

	// ChunkOverlap is measured in characters. Nil means DefaultChunkOverlap,
	// reduced to a fifth of the chunk size when that would not fit.
	ChunkOverlap *int
}

// Chunking returns the effective chunk size and overlap.
func (r IngestRequest) Chunking() (size, overlap int) {
	size = r.ChunkSize
	if size == 0 {
		size = DefaultChunkSize
	}
	if r.ChunkOverlap != nil {
		return size, *r.ChunkOverlap
	}
	overlap = DefaultChunkOverlap
	if overlap >= size {
		overlap = size / 5
	}
	return size, overlap
}

// Validate checks the required fields and the effective chunking parameters.
func (r IngestRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.DocumentType) == "" {
		return fmt.Errorf("%w: document type is required", ErrInvalidInput)
	}
	return ValidateChunking(r.Chunking())
}

// ValidateChunking checks chunk size and overlap.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidConfiguration, overlap, size)
	}
	return nil
}
