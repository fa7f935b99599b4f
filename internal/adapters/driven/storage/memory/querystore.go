package memory

import (
	"context"
	"sort"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// LogQuery records a query and its ranked chunks. Links to chunks that no
// longer exist are dropped and the rest re-ranked from 0.
func (s *Store) LogQuery(_ context.Context, record *domain.QueryRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}

	s.nextQueryID++
	record.ID = s.nextQueryID

	stored := *record
	stored.QueryEmbedding = cloneVector(record.QueryEmbedding)
	stored.Retrieved = make([]domain.RetrievedChunk, 0, len(record.Retrieved))
	for _, r := range record.Retrieved {
		if _, ok := s.chunks[r.ChunkID]; ok {
			r.Rank = len(stored.Retrieved)
			stored.Retrieved = append(stored.Retrieved, r)
		}
	}
	if record.ResultText != nil {
		text := *record.ResultText
		stored.ResultText = &text
	}
	if record.RelevanceScore != nil {
		score := *record.RelevanceScore
		stored.RelevanceScore = &score
	}

	s.queries[record.ID] = stored
	return record.ID, nil
}

// UsageStatistics aggregates document, chunk and query counts.
func (s *Store) UsageStatistics(_ context.Context) (*domain.UsageStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.EmptyStatistics()
	stats.TotalDocuments = len(s.documents)
	stats.TotalChunks = len(s.chunks)
	stats.TotalQueries = len(s.queries)

	for _, doc := range s.documents {
		stats.DocumentTypeDistribution[doc.DocumentType]++
	}

	var (
		sum    float64
		scored int
	)
	recent := make([]domain.QueryRecord, 0, len(s.queries))
	for _, q := range s.queries {
		if q.RelevanceScore != nil {
			sum += *q.RelevanceScore
			scored++
		}
		recent = append(recent, q)
	}
	if scored > 0 {
		stats.AverageRelevance = sum / float64(scored)
	}

	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].CreatedAt.After(recent[j].CreatedAt)
		}
		return recent[i].ID > recent[j].ID
	})
	if len(recent) > domain.RecentQueryLimit {
		recent = recent[:domain.RecentQueryLimit]
	}

	for _, q := range recent {
		rq := domain.RecentQuery{
			ID:         q.ID,
			QueryText:  q.QueryText,
			UserID:     q.UserID,
			CreatedAt:  q.CreatedAt,
			ChunkCount: len(q.Retrieved),
		}
		if q.RelevanceScore != nil {
			rq.RelevanceScore = *q.RelevanceScore
		}
		stats.RecentQueries = append(stats.RecentQueries, rq)
	}

	return &stats, nil
}
