package memory

import (
	"sync"
	"time"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

// Ensure Store implements both store interfaces.
var (
	_ driven.DocumentStore = (*Store)(nil)
	_ driven.QueryStore    = (*Store)(nil)
)

// Store is an in-memory implementation of driven.DocumentStore and
// driven.QueryStore. IDs are assigned from per-table counters starting at 1.
type Store struct {
	mu sync.RWMutex

	documents map[int64]domain.Document
	chunks    map[int64]domain.Chunk
	queries   map[int64]domain.QueryRecord

	nextDocumentID int64
	nextChunkID    int64
	nextQueryID    int64

	now func() time.Time
}

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[int64]domain.Document),
		chunks:    make(map[int64]domain.Chunk),
		queries:   make(map[int64]domain.QueryRecord),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Close is a no-op; it lets the store stand in for the SQLite store.
func (s *Store) Close() error {
	return nil
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
