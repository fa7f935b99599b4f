package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// CreateDocument stores a document and assigns its ID.
func (s *Store) CreateDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDocumentID++
	doc.ID = s.nextDocumentID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.State == "" {
		doc.State = domain.DocumentStateIngesting
	}

	stored := *doc
	stored.Metadata = cloneMetadata(doc.Metadata)
	s.documents[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.Metadata = cloneMetadata(doc.Metadata)
	return &doc, nil
}

// ListDocuments returns documents newest first, optionally filtered by type.
func (s *Store) ListDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	filter = filter.Normalised()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		if filter.DocumentType != "" && doc.DocumentType != filter.DocumentType {
			continue
		}
		doc.Metadata = cloneMetadata(doc.Metadata)
		matched = append(matched, doc)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Offset >= len(matched) {
		return []domain.Document{}, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))
	return matched[filter.Offset:end], nil
}

// UpdateDocumentState moves a document forward through its lifecycle.
func (s *Store) UpdateDocumentState(_ context.Context, id int64, state domain.DocumentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !doc.State.CanAdvanceTo(state) {
		return fmt.Errorf("%w: document %d cannot move from %s to %s",
			domain.ErrInvalidInput, id, doc.State, state)
	}
	doc.State = state
	doc.UpdatedAt = s.now()
	s.documents[id] = doc
	return nil
}

// DeleteDocument removes a document, its chunks and any query links to them.
func (s *Store) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)

	removed := make(map[int64]bool)
	for chunkID, chunk := range s.chunks {
		if chunk.DocumentID == id {
			removed[chunkID] = true
			delete(s.chunks, chunkID)
		}
	}

	for queryID, q := range s.queries {
		kept := q.Retrieved[:0:0]
		for _, r := range q.Retrieved {
			if !removed[r.ChunkID] {
				kept = append(kept, r)
			}
		}
		q.Retrieved = kept
		s.queries[queryID] = q
	}
	return nil
}

// CreateChunks stores chunks and returns their IDs in order. Either every
// chunk is stored or none is.
func (s *Store) CreateChunks(_ context.Context, chunks []domain.Chunk) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if _, ok := s.documents[chunk.DocumentID]; !ok {
			return nil, fmt.Errorf("saving chunk %d: %w: document %d does not exist",
				chunk.Index, domain.ErrPersistence, chunk.DocumentID)
		}
	}

	ids := make([]int64, 0, len(chunks))
	for _, chunk := range chunks {
		s.nextChunkID++
		chunk.ID = s.nextChunkID
		chunk.Embedding = cloneVector(chunk.Embedding)
		s.chunks[chunk.ID] = chunk
		ids = append(ids, chunk.ID)
	}
	return ids, nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *Store) GetChunks(_ context.Context, documentID int64) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := []domain.Chunk{}
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			chunk.Embedding = cloneVector(chunk.Embedding)
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// UpdateChunkEmbedding stores the embedding for a chunk.
func (s *Store) UpdateChunkEmbedding(_ context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for chunk %d", domain.ErrInvalidInput, chunkID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return domain.ErrNotFound
	}
	chunk.Embedding = cloneVector(embedding)
	chunk.EmbeddingUnavailable = false
	s.chunks[chunkID] = chunk
	return nil
}

// MarkEmbeddingUnavailable records that a chunk could not be embedded.
func (s *Store) MarkEmbeddingUnavailable(_ context.Context, chunkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return domain.ErrNotFound
	}
	chunk.Embedding = nil
	chunk.EmbeddingUnavailable = true
	s.chunks[chunkID] = chunk
	return nil
}

// ListCandidates returns every chunk joined with its document, ordered by chunk ID.
func (s *Store) ListCandidates(_ context.Context, documentType string) ([]domain.CandidateChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := []domain.CandidateChunk{}
	for _, chunk := range s.chunks {
		doc, ok := s.documents[chunk.DocumentID]
		if !ok {
			continue
		}
		if documentType != "" && doc.DocumentType != documentType {
			continue
		}
		chunk.Embedding = cloneVector(chunk.Embedding)
		candidates = append(candidates, domain.CandidateChunk{
			Chunk:         chunk,
			DocumentTitle: doc.Title,
			DocumentType:  doc.DocumentType,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Chunk.ID < candidates[j].Chunk.ID })
	return candidates, nil
}
