package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apeko/appraisal-rag/internal/adapters/driven/storage/memory"
	"github.com/apeko/appraisal-rag/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, &defaults, settings)
	assert.NoError(t, settings.Validate())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("server.port", int64(9100))
	_ = store.Set("storage.driver", "memory")
	_ = store.Set("chunking.size", int64(500))
	_ = store.Set("chunking.overlap", int64(0))
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.cache_size", int64(0))
	_ = store.Set("llm.provider", "none")
	_ = store.Set("llm.timeout", "45s")
	_ = store.Set("llm.temperature", 0.1)
	_ = store.Set("llm.requests_per_second", int64(0))

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)

	assert.Equal(t, 9100, settings.Server.Port)
	assert.Equal(t, domain.StorageDriverMemory, settings.Storage.Driver)
	assert.Equal(t, 500, settings.Chunking.Size)
	assert.Equal(t, 0, settings.Chunking.Overlap)
	assert.Equal(t, domain.EmbeddingProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, 0, settings.Embedding.CacheSize)
	assert.Equal(t, domain.LLMProviderNone, settings.LLM.Provider)
	assert.Equal(t, 45*time.Second, settings.LLM.Timeout)
	assert.InDelta(t, 0.1, settings.LLM.Temperature, 1e-9)
	assert.Zero(t, settings.LLM.RequestsPerSecond)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("storage.driver", "postgres")
	_ = store.Set("embedding.provider", "invalid")
	_ = store.Set("llm.provider", "invalid")
	_ = store.Set("llm.timeout", "soon")

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Storage.Driver, settings.Storage.Driver)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.LLM.Timeout, settings.LLM.Timeout)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	settings.Server.Host = "127.0.0.1"
	settings.Chunking.Overlap = 0
	settings.LLM.APIKey = "secret"
	settings.LLM.Timeout = time.Minute
	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, &settings, got)
}

func TestSettingsService_Save_SkipsEmptyAPIKeys(t *testing.T) {
	store := memory.NewConfigStore()
	settings := domain.DefaultSettings()

	require.NoError(t, NewSettingsService(store).Save(&settings))

	_, ok := store.Get("llm.api_key")
	assert.False(t, ok)
	_, ok = store.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.Set("llm.model", "mixtral"))
	require.NoError(t, service.Set("search.top_k", "8"))
	require.NoError(t, service.Set("llm.temperature", "0.3"))
	require.NoError(t, service.Set("llm.timeout", "90s"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "mixtral", settings.LLM.Model)
	assert.Equal(t, 8, settings.Search.TopK)
	assert.InDelta(t, 0.3, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, 90*time.Second, settings.LLM.Timeout)
}

func TestSettingsService_Set_Errors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{"unknown key", "search.mode", "hybrid", domain.ErrInvalidInput},
		{"not an int", "server.port", "eighty", domain.ErrInvalidInput},
		{"not a float", "llm.temperature", "warm", domain.ErrInvalidInput},
		{"not a duration", "llm.timeout", "soon", domain.ErrInvalidInput},
		{"overlap too large", "chunking.overlap", "1000", domain.ErrInvalidConfiguration},
		{"port out of range", "server.port", "70000", domain.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			err := service.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, tt.wantErr)

			// Rejected values are not left behind.
			settings, getErr := service.Get()
			require.NoError(t, getErr)
			assert.NoError(t, settings.Validate())
			_, ok := store.Get(tt.key)
			assert.False(t, ok)
		})
	}
}

func TestSettingsService_Set_RestoresPreviousValue(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	require.NoError(t, service.Set("chunking.overlap", "100"))

	err := service.Set("chunking.overlap", "5000")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 100, settings.Chunking.Overlap)
}

func TestSettingKeys(t *testing.T) {
	keys := SettingKeys()
	assert.Contains(t, keys, "llm.api_key")
	assert.Contains(t, keys, "server.port")
	assert.IsIncreasing(t, keys)
}
