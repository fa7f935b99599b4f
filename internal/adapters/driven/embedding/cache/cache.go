// Package cache provides an LRU decorator for any embedding service.
// Only successful vectors are cached; failures always reach the inner service.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/metrics"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService wraps an inner service with an in-memory LRU cache.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	cache   *lru.Cache[string, []float32]
	metrics *metrics.Recorder
}

// New wraps inner with a cache holding up to size vectors.
// The recorder may be nil.
func New(inner driven.EmbeddingService, size int, rec *metrics.Recorder) (*EmbeddingService, error) {
	if inner == nil {
		return nil, fmt.Errorf("embedding cache: inner service is nil")
	}
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache: size must be greater than zero")
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: init cache: %w", err)
	}
	return &EmbeddingService{inner: inner, cache: c, metrics: rec}, nil
}

// Embed returns a cached vector or computes and caches one.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(true)
		return cloneVector(vec), nil
	}
	s.metrics.CacheLookup(false)

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		s.cache.Add(key, cloneVector(vec))
	}
	return vec, nil
}

// EmbedBatch serves cached texts locally and sends the rest to the inner
// service in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	missing := make(map[string][]int)
	order := make([]string, 0)

	for i, text := range texts {
		if vec, ok := s.cache.Get(cacheKey(text)); ok {
			s.metrics.CacheLookup(true)
			results[i] = cloneVector(vec)
			continue
		}
		s.metrics.CacheLookup(false)
		if _, seen := missing[text]; !seen {
			order = append(order, text)
		}
		missing[text] = append(missing[text], i)
	}
	if len(order) == 0 {
		return results, nil
	}

	embedded, err := s.inner.EmbedBatch(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(order) {
		return nil, fmt.Errorf("embedding cache: received %d embeddings for %d texts", len(embedded), len(order))
	}
	for i, text := range order {
		for _, idx := range missing[text] {
			results[idx] = cloneVector(embedded[i])
		}
		if len(embedded[i]) > 0 {
			s.cache.Add(cacheKey(text), cloneVector(embedded[i]))
		}
	}
	return results, nil
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// Dimensions returns the inner service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the inner service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the inner service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close purges the cache and closes the inner service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(vec []float32) []float32 {
	if vec == nil {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
