// Package hash provides a deterministic embedding service derived from the
// MD5 digest of the input text. Vectors carry no semantic meaning: equal
// texts get equal vectors, unrelated texts get unrelated ones. It needs no
// network and is the default when no embedding API is configured.
package hash

import (
	"context"
	"crypto/md5" //nolint:gosec // not used for security
	"fmt"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName is reported by the service.
const ModelName = "md5-hash"

// EmbeddingService maps text to a fixed-length vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedder producing vectors of the given
// length. Zero or less means domain.DefaultEmbeddingDims.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDims
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns element i = digest[i mod 16]/128 - 1, each in [-1, 127/128].
// Empty text and the all-zero vector are reported as unavailable.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("hash: empty text: %w", domain.ErrEmbeddingUnavailable)
	}

	digest := md5.Sum([]byte(text)) //nolint:gosec // not used for security

	zero := true
	vec := make([]float32, s.dimensions)
	for i := range vec {
		b := digest[i%len(digest)]
		vec[i] = float32(b)/128.0 - 1.0
		if b != 128 {
			zero = false
		}
	}
	if zero {
		return nil, fmt.Errorf("hash: zero vector: %w", domain.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
