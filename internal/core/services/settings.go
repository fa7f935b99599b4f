package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyServerHost     = "server.host"
	keyServerPort     = "server.port"
	keyStorageDriver  = "storage.driver"
	keyStoragePath    = "storage.path"
	keyStorageDataDir = "storage.data_dir"
	keyChunkSize      = "chunking.size"
	keyChunkOverlap   = "chunking.overlap"
	keySearchTopK     = "search.top_k"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedCacheSize = "embedding.cache_size"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTimeout     = "llm.timeout"
	keyLLMRate        = "llm.requests_per_second"
	keyLLMMaxRetries  = "llm.max_retries"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMTemperature = "llm.temperature"
)

// keyKind describes how Set parses a string value.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindDuration
)

var settingKeys = map[string]keyKind{
	keyServerHost:     kindString,
	keyServerPort:     kindInt,
	keyStorageDriver:  kindString,
	keyStoragePath:    kindString,
	keyStorageDataDir: kindString,
	keyChunkSize:      kindInt,
	keyChunkOverlap:   kindInt,
	keySearchTopK:     kindInt,
	keyEmbedProvider:  kindString,
	keyEmbedModel:     kindString,
	keyEmbedBaseURL:   kindString,
	keyEmbedAPIKey:    kindString,
	keyEmbedDims:      kindInt,
	keyEmbedCacheSize: kindInt,
	keyLLMProvider:    kindString,
	keyLLMModel:       kindString,
	keyLLMBaseURL:     kindString,
	keyLLMAPIKey:      kindString,
	keyLLMTimeout:     kindDuration,
	keyLLMRate:        kindFloat,
	keyLLMMaxRetries:  kindInt,
	keyLLMMaxTokens:   kindInt,
	keyLLMTemperature: kindFloat,
}

// SettingKeys returns every key accepted by Set, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Missing or invalid stored
// values fall back to defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Server: domain.ServerSettings{
			Host: s.getString(keyServerHost, d.Server.Host),
			Port: s.getInt(keyServerPort, d.Server.Port),
		},
		Storage: domain.StorageSettings{
			Driver:  s.getStorageDriver(d.Storage.Driver),
			Path:    s.configStore.GetString(keyStoragePath),
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap: s.getIntAllowZero(keyChunkOverlap, d.Chunking.Overlap),
		},
		Search: domain.SearchSettings{
			TopK: s.getInt(keySearchTopK, d.Search.TopK),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getEmbeddingProvider(d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.getString(keyEmbedBaseURL, d.Embedding.BaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, d.Embedding.Dimensions),
			CacheSize:  s.getIntAllowZero(keyEmbedCacheSize, d.Embedding.CacheSize),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getLLMProvider(d.LLM.Provider),
			Model:             s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:           s.getString(keyLLMBaseURL, d.LLM.BaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			Timeout:           s.getDuration(keyLLMTimeout, d.LLM.Timeout),
			RequestsPerSecond: s.getFloatAllowZero(keyLLMRate, d.LLM.RequestsPerSecond),
			MaxRetries:        s.getIntAllowZero(keyLLMMaxRetries, d.LLM.MaxRetries),
			MaxTokens:         s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature:       s.getFloatAllowZero(keyLLMTemperature, d.LLM.Temperature),
		},
	}

	return settings, nil
}

// Save persists application settings. API keys are only written when set.
func (s *SettingsService) Save(settings *domain.Settings) error {
	type entry struct {
		key   string
		value any
	}
	values := []entry{
		{keyServerHost, settings.Server.Host},
		{keyServerPort, settings.Server.Port},
		{keyStorageDriver, settings.Storage.Driver.String()},
		{keyStoragePath, settings.Storage.Path},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keySearchTopK, settings.Search.TopK},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedCacheSize, settings.Embedding.CacheSize},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyLLMRate, settings.LLM.RequestsPerSecond},
		{keyLLMMaxRetries, settings.LLM.MaxRetries},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTemperature, settings.LLM.Temperature},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, entry{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, entry{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value according to key and stores it. The resulting settings
// must still validate.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be a duration such as 30s", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	default:
		parsed = value
	}

	previous, existed := s.configStore.Get(key)
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	settings, err := s.Get()
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		if existed {
			_ = s.configStore.Set(key, previous)
		} else {
			_ = s.configStore.Delete(key)
		}
		return err
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit 0 as a value rather than "unset".
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloatAllowZero(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getStorageDriver(defaultVal domain.StorageDriver) domain.StorageDriver {
	driver := domain.StorageDriver(s.configStore.GetString(keyStorageDriver))
	if !driver.IsValid() {
		return defaultVal
	}
	return driver
}

func (s *SettingsService) getEmbeddingProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	provider := domain.EmbeddingProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getLLMProvider(defaultVal domain.LLMProvider) domain.LLMProvider {
	provider := domain.LLMProvider(s.configStore.GetString(keyLLMProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
