// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/apeko/appraisal-rag/internal/adapters/driven/embedding/cache"
	hashembed "github.com/apeko/appraisal-rag/internal/adapters/driven/embedding/hash"
	openaiembed "github.com/apeko/appraisal-rag/internal/adapters/driven/embedding/openai"
	openaillm "github.com/apeko/appraisal-rag/internal/adapters/driven/llm/openai"
	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/logger"
	"github.com/apeko/appraisal-rag/internal/metrics"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if the embedder fell back to hash.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds the embedder and LLM from settings. It never fails: an
// unusable embedding provider falls back to the hash embedder and an
// unconfigured LLM is left nil, each with a warning.
func Init(settings domain.Settings, rec *metrics.Recorder) *InitResult {
	result := &InitResult{}

	embedder, err := CreateEmbeddingService(&settings.Embedding, rec)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedding: %v; using hash embedder", err))
		result.FellBack = true
		embedder = hashembed.NewEmbeddingService(settings.Embedding.Dimensions)
	}
	result.EmbeddingService = embedder

	llm, err := CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("llm: %v", err))
	case llm == nil && settings.LLM.Provider != domain.LLMProviderNone:
		result.Warnings = append(result.Warnings, "llm: no API key configured; answers will list sources only")
	default:
		result.LLMService = llm
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// CreateEmbeddingService creates the embedding service selected by settings,
// wrapped in an LRU cache when CacheSize is positive.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, rec *metrics.Recorder) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings are nil", domain.ErrInvalidConfiguration)
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.EmbeddingProviderHash:
		svc = hashembed.NewEmbeddingService(settings.Dimensions)

	case domain.EmbeddingProviderOpenAI:
		openai, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    openaillm.NormaliseBaseURL(settings.BaseURL),
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			MaxRetries: domain.DefaultLLMRetries,
		})
		if err != nil {
			return nil, err
		}
		svc = openai

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s",
			domain.ErrInvalidConfiguration, settings.Provider)
	}

	if settings.CacheSize <= 0 {
		return svc, nil
	}
	cached, err := cache.New(svc, settings.CacheSize, rec)
	if err != nil {
		svc.Close()
		return nil, err
	}
	return cached, nil
}

// CreateLLMService creates the LLM service selected by settings.
// Returns nil if the provider is disabled or has no API key.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.LLMProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerSecond: settings.RequestsPerSecond,
			MaxRetries:        settings.MaxRetries,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s",
			domain.ErrInvalidConfiguration, settings.Provider)
	}
}

// ValidateLLMService pings the LLM and returns a wrapped ErrLLMUnavailable
// with guidance when it is unreachable.
func ValidateLLMService(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		return domain.ErrLLMUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w). Check NEBIUS_API_KEY and NEBIUS_ENDPOINT",
			domain.ErrLLMUnavailable, err)
	}
	return nil
}
