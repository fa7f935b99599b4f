package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apeko/appraisal-rag/internal/adapters/driven/embedding/cache"
	hashembed "github.com/apeko/appraisal-rag/internal/adapters/driven/embedding/hash"
	"github.com/apeko/appraisal-rag/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantErr   bool
		wantCache bool
		wantDims  int
	}{
		{
			name:    "nil settings returns error",
			wantErr: true,
		},
		{
			name:     "hash provider",
			settings: &domain.EmbeddingSettings{Provider: domain.EmbeddingProviderHash, Dimensions: 32},
			wantDims: 32,
		},
		{
			name: "hash provider with cache",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.EmbeddingProviderHash,
				Dimensions: 16,
				CacheSize:  8,
			},
			wantCache: true,
			wantDims:  16,
		},
		{
			name: "openai provider",
			settings: &domain.EmbeddingSettings{
				Provider: domain.EmbeddingProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
			wantDims: 1536,
		},
		{
			name:     "openai without key returns error",
			settings: &domain.EmbeddingSettings{Provider: domain.EmbeddingProviderOpenAI},
			wantErr:  true,
		},
		{
			name:     "unknown provider returns error",
			settings: &domain.EmbeddingSettings{Provider: "word2vec"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
			_, isCache := svc.(*cache.EmbeddingService)
			assert.Equal(t, tt.wantCache, isCache)
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(nil)
	assert.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.LLMProviderOpenAI})
	assert.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.LLMProviderNone, APIKey: "k"})
	assert.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateLLMService(&domain.LLMSettings{
		Provider: domain.LLMProviderOpenAI,
		APIKey:   "k",
		Model:    "meta-llama/Meta-Llama-3.1-70B-Instruct",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "meta-llama/Meta-Llama-3.1-70B-Instruct", svc.ModelName())
}

// TestInit_FallsBack tests that a broken embedding config degrades to hash
func TestInit_FallsBack(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Embedding.Provider = domain.EmbeddingProviderOpenAI
	settings.Embedding.CacheSize = 0

	result := Init(settings, nil)
	defer result.Close()

	assert.True(t, result.FellBack)
	_, isHash := result.EmbeddingService.(*hashembed.EmbeddingService)
	assert.True(t, isHash)
	assert.Nil(t, result.LLMService)
	assert.Len(t, result.Warnings, 2)
}

func TestInit_Configured(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.LLM.APIKey = "k"

	result := Init(settings, nil)
	defer result.Close()

	assert.False(t, result.FellBack)
	assert.NotNil(t, result.EmbeddingService)
	assert.NotNil(t, result.LLMService)
	assert.Empty(t, result.Warnings)
}

func TestInit_LLMDisabled(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.LLM.Provider = domain.LLMProviderNone

	result := Init(settings, nil)
	defer result.Close()

	assert.Nil(t, result.LLMService)
	assert.Empty(t, result.Warnings)
}

func TestValidateLLMService(t *testing.T) {
	assert.ErrorIs(t, ValidateLLMService(context.Background(), nil), domain.ErrLLMUnavailable)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc, err := CreateLLMService(&domain.LLMSettings{
		Provider: domain.LLMProviderOpenAI,
		APIKey:   "bad",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	err = ValidateLLMService(context.Background(), svc)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
