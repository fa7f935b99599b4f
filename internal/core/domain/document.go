package domain

import "time"

// DocumentState tracks how far ingestion has progressed for a document.
type DocumentState string

// Document lifecycle states. A document only moves forward.
const (
	// DocumentStateIngesting is set when the document row is created.
	DocumentStateIngesting DocumentState = "ingesting"

	// DocumentStateEmbedding is set once every chunk has been persisted.
	DocumentStateEmbedding DocumentState = "embedding"

	// DocumentStateReady is set once every chunk has an embedding or has
	// been marked as having none.
	DocumentStateReady DocumentState = "ready"
)

// IsValid returns true if the state is recognised.
func (s DocumentState) IsValid() bool {
	switch s {
	case DocumentStateIngesting, DocumentStateEmbedding, DocumentStateReady:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentState) String() string {
	return string(s)
}

// order is the position of the state in the lifecycle.
func (s DocumentState) order() int {
	switch s {
	case DocumentStateIngesting:
		return 1
	case DocumentStateEmbedding:
		return 2
	case DocumentStateReady:
		return 3
	default:
		return 0
	}
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle
// monotonic. Staying in the same state is allowed.
func (s DocumentState) CanAdvanceTo(next DocumentState) bool {
	if !next.IsValid() {
		return false
	}
	return next.order() >= s.order()
}

// Document is a reference document ingested for retrieval.
type Document struct {
	// ID is assigned by the store on creation.
	ID int64

	// Title is the human-readable title.
	Title string

	// Content is the full text before chunking.
	Content string

	// DocumentType is a free-form category label, e.g. "appraisal_report"
	// or "market_analysis". It is used for filtering.
	DocumentType string

	// Source is an optional origin reference (file name, URL).
	Source string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// State is the ingestion lifecycle state.
	State DocumentState

	// CreatedAt is when the document was created.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk is a contiguous span of a document's content.
type Chunk struct {
	// ID is assigned by the store on creation.
	ID int64

	// DocumentID links to the parent Document.
	DocumentID int64

	// Index is the 0-based position within the document.
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation; nil means absent.
	Embedding []float32

	// EmbeddingUnavailable marks a chunk whose embedding attempt failed.
	// Such a chunk is only reachable through keyword fallback.
	EmbeddingUnavailable bool
}

// HasEmbedding returns true if the chunk carries a vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	// DocumentType filters by category; empty means all.
	DocumentType string

	// Limit is the maximum number of documents. Zero or less means DefaultListLimit.
	Limit int

	// Offset is the number of documents to skip.
	Offset int
}

// DefaultListLimit is the page size applied when none is given.
const DefaultListLimit = 100

// Normalised returns the filter with defaults applied.
func (f DocumentFilter) Normalised() DocumentFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
