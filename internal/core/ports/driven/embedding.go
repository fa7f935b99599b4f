package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, search always uses keyword fallback.
//
// Implementations may include:
//   - Hash (deterministic, offline)
//   - OpenAI-compatible APIs (OpenAI, Nebius)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// Any error means the text has no embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
