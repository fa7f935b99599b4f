package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHash derives vectors from an MD5 digest of the text.
	// It has no semantic meaning and needs no network.
	EmbeddingProviderHash EmbeddingProvider = "hash"

	// EmbeddingProviderOpenAI calls an OpenAI-compatible /embeddings endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHash, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderHash:
		return "Deterministic hash (offline, not semantic)"
	case EmbeddingProviderOpenAI:
		return "OpenAI-compatible API"
	default:
		return unknownDescription
	}
}

// LLMProvider identifies the text generation backend.
type LLMProvider string

// Available LLM providers.
const (
	// LLMProviderOpenAI calls an OpenAI-compatible /chat/completions endpoint
	// such as Nebius AI Studio.
	LLMProviderOpenAI LLMProvider = "openai"

	// LLMProviderNone disables generation; answers list sources only.
	LLMProviderNone LLMProvider = "none"
)

// IsValid returns true if the provider is recognised.
func (p LLMProvider) IsValid() bool {
	switch p {
	case LLMProviderOpenAI, LLMProviderNone:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p LLMProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p LLMProvider) Description() string {
	switch p {
	case LLMProviderOpenAI:
		return "OpenAI-compatible API"
	case LLMProviderNone:
		return "Disabled"
	default:
		return unknownDescription
	}
}

// StorageDriver identifies the document store backend.
type StorageDriver string

// Available storage drivers.
const (
	StorageDriverSQLite StorageDriver = "sqlite"
	StorageDriverMemory StorageDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	return d == StorageDriverSQLite || d == StorageDriverMemory
}

// String returns the string representation.
func (d StorageDriver) String() string {
	return string(d)
}

// ServerSettings holds the HTTP listener configuration.
type ServerSettings struct {
	Host string
	Port int
}

// Address returns host:port.
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageSettings holds document store configuration.
type StorageSettings struct {
	Driver StorageDriver

	// Path is the SQLite database file. Empty means DataDir/appraisal.db.
	Path string

	// DataDir is the directory holding the database and config file.
	DataDir string
}

// ChunkingSettings holds the default chunk parameters for ingestion.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// SearchSettings holds retrieval defaults.
type SearchSettings struct {
	TopK int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider EmbeddingProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Dimensions is the vector length produced by the provider.
	Dimensions int

	// CacheSize is the number of query embeddings kept in memory.
	// Zero disables the cache.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	Provider LLMProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Timeout bounds a single generation call.
	Timeout time.Duration

	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64

	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int

	// MaxTokens and Temperature are sent with every completion.
	MaxTokens   int
	Temperature float64
}

// IsConfigured returns true if the LLM provider can be used.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider == LLMProviderOpenAI && l.APIKey != ""
}

// Settings holds all application settings.
type Settings struct {
	Server    ServerSettings
	Storage   StorageSettings
	Chunking  ChunkingSettings
	Search    SearchSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
}

// Default values.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8002
	DefaultEmbeddingDims     = 1536
	DefaultEmbeddingCache    = 1024
	DefaultLLMBaseURL        = "https://api.studio.nebius.com/v1"
	DefaultLLMModel          = "meta-llama/Meta-Llama-3.1-70B-Instruct"
	DefaultEmbeddingModel    = "BAAI/bge-en-icl"
	DefaultLLMTimeout        = 30 * time.Second
	DefaultLLMMaxTokens      = 1000
	DefaultLLMTemperature    = 0.7
	DefaultLLMRetries        = 3
	DefaultLLMRequestsPerSec = 5
)

// DefaultSettings returns settings with sensible defaults.
// Generation stays disabled until an API key is supplied.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Storage: StorageSettings{
			Driver: StorageDriverSQLite,
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Search: SearchSettings{
			TopK: DefaultTopK,
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHash,
			Model:      DefaultEmbeddingModel,
			BaseURL:    DefaultLLMBaseURL,
			Dimensions: DefaultEmbeddingDims,
			CacheSize:  DefaultEmbeddingCache,
		},
		LLM: LLMSettings{
			Provider:          LLMProviderOpenAI,
			Model:             DefaultLLMModel,
			BaseURL:           DefaultLLMBaseURL,
			Timeout:           DefaultLLMTimeout,
			RequestsPerSecond: DefaultLLMRequestsPerSec,
			MaxRetries:        DefaultLLMRetries,
			MaxTokens:         DefaultLLMMaxTokens,
			Temperature:       DefaultLLMTemperature,
		},
	}
}

// Validate checks settings for values the services cannot work with.
func (s Settings) Validate() error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfiguration, s.Server.Port)
	}
	if !s.Storage.Driver.IsValid() {
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfiguration, s.Storage.Driver)
	}
	if err := ValidateChunking(s.Chunking.Size, s.Chunking.Overlap); err != nil {
		return err
	}
	if s.Search.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfiguration, s.Search.TopK)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfiguration, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidConfiguration)
	}
	if !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfiguration, s.LLM.Provider)
	}
	return nil
}
