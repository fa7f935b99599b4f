package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap them with context; callers test with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration indicates bad parameters such as a chunk
	// overlap that is not smaller than the chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable signals that no vector could be produced
	// for a text. Callers fall back to keyword matching.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrPersistence indicates the document store failed.
	ErrPersistence = errors.New("persistence error")

	// ErrGeneration indicates the text generation service failed.
	ErrGeneration = errors.New("generation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
