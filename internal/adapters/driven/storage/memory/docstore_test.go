package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newTestStore() *Store {
	store := NewStore()
	store.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return store
}

func addDocument(t *testing.T, store *Store, docType string, chunks int) (*domain.Document, []int64) {
	t.Helper()
	ctx := context.Background()

	doc := &domain.Document{Title: "Doc " + docType, Content: "body", DocumentType: docType}
	require.NoError(t, store.CreateDocument(ctx, doc))

	batch := make([]domain.Chunk, chunks)
	for i := range batch {
		batch[i] = domain.Chunk{DocumentID: doc.ID, Index: i, Content: "chunk"}
	}
	ids, err := store.CreateChunks(ctx, batch)
	require.NoError(t, err)
	return doc, ids
}

func TestNewStore(t *testing.T) {
	store := NewStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.documents)
	assert.NotNil(t, store.chunks)
	assert.NotNil(t, store.queries)
	assert.NoError(t, store.Close())
}

func TestStore_CreateDocument_AssignsIDs(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first := &domain.Document{Title: "A", DocumentType: "appraisal"}
	second := &domain.Document{Title: "B", DocumentType: "appraisal"}
	require.NoError(t, store.CreateDocument(ctx, first))
	require.NoError(t, store.CreateDocument(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, domain.DocumentStateIngesting, first.State)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)
}

func TestStore_GetDocument_CopiesMetadata(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	doc := &domain.Document{Title: "A", DocumentType: "appraisal", Metadata: map[string]any{"k": "v"}}
	require.NoError(t, store.CreateDocument(ctx, doc))
	doc.Metadata["k"] = "changed"

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Metadata["k"])

	_, err = store.GetDocument(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListDocuments(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	a, _ := addDocument(t, store, "appraisal", 0)
	m, _ := addDocument(t, store, "market_report", 0)
	b, _ := addDocument(t, store, "appraisal", 0)

	all, err := store.ListDocuments(ctx, domain.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{b.ID, m.ID, a.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	typed, err := store.ListDocuments(ctx, domain.DocumentFilter{DocumentType: "appraisal", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, typed, 1)
	assert.Equal(t, a.ID, typed[0].ID)

	past, err := store.ListDocuments(ctx, domain.DocumentFilter{Offset: 10})
	require.NoError(t, err)
	assert.NotNil(t, past)
	assert.Empty(t, past)
}

func TestStore_UpdateDocumentState(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	doc, _ := addDocument(t, store, "appraisal", 0)

	require.NoError(t, store.UpdateDocumentState(ctx, doc.ID, domain.DocumentStateEmbedding))
	require.NoError(t, store.UpdateDocumentState(ctx, doc.ID, domain.DocumentStateReady))
	assert.ErrorIs(t, store.UpdateDocumentState(ctx, doc.ID, domain.DocumentStateEmbedding), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.UpdateDocumentState(ctx, 999, domain.DocumentStateReady), domain.ErrNotFound)

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStateReady, got.State)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestStore_CreateChunks(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	doc, ids := addDocument(t, store, "appraisal", 3)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, ids[i], c.ID)
	}
}

func TestStore_CreateChunks_MissingDocumentStoresNothing(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	doc, _ := addDocument(t, store, "appraisal", 0)

	_, err := store.CreateChunks(ctx, []domain.Chunk{
		{DocumentID: doc.ID, Index: 0, Content: "ok"},
		{DocumentID: 999, Index: 1, Content: "orphan"},
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStore_ChunkEmbeddings(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	doc, ids := addDocument(t, store, "appraisal", 2)

	vec := []float32{1, 2}
	require.NoError(t, store.UpdateChunkEmbedding(ctx, ids[0], vec))
	vec[0] = 99
	require.NoError(t, store.MarkEmbeddingUnavailable(ctx, ids[1]))

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, chunks[0].Embedding)
	assert.True(t, chunks[1].EmbeddingUnavailable)
	assert.Nil(t, chunks[1].Embedding)

	assert.ErrorIs(t, store.UpdateChunkEmbedding(ctx, ids[0], nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.UpdateChunkEmbedding(ctx, 999, vec), domain.ErrNotFound)
	assert.ErrorIs(t, store.MarkEmbeddingUnavailable(ctx, 999), domain.ErrNotFound)
}

func TestStore_ListCandidates(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	_, aIDs := addDocument(t, store, "appraisal", 2)
	_, mIDs := addDocument(t, store, "market_report", 1)

	all, err := store.ListCandidates(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{aIDs[0], aIDs[1], mIDs[0]},
		[]int64{all[0].Chunk.ID, all[1].Chunk.ID, all[2].Chunk.ID})
	assert.Equal(t, "Doc appraisal", all[0].DocumentTitle)

	typed, err := store.ListCandidates(ctx, "market_report")
	require.NoError(t, err)
	require.Len(t, typed, 1)
	assert.Equal(t, "market_report", typed[0].DocumentType)
}

func TestStore_DeleteDocument_Cascades(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	doc, ids := addDocument(t, store, "appraisal", 2)
	_, otherIDs := addDocument(t, store, "appraisal", 1)

	_, err := store.LogQuery(ctx, &domain.QueryRecord{
		QueryText: "pool",
		Retrieved: []domain.RetrievedChunk{
			{ChunkID: ids[0], Rank: 0},
			{ChunkID: otherIDs[0], Rank: 1},
		},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))
	assert.ErrorIs(t, store.DeleteDocument(ctx, doc.ID), domain.ErrNotFound)

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	stats, err := store.UsageStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
	require.Len(t, stats.RecentQueries, 1)
	assert.Equal(t, 1, stats.RecentQueries[0].ChunkCount)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := &domain.Document{Title: "t", DocumentType: "appraisal"}
			_ = store.CreateDocument(ctx, doc)
			_, _ = store.CreateChunks(ctx, []domain.Chunk{{DocumentID: doc.ID, Content: "c"}})
			_, _ = store.ListCandidates(ctx, "")
		}()
	}
	wg.Wait()

	stats, err := store.UsageStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TotalDocuments)
	assert.Equal(t, 20, stats.TotalChunks)
}
