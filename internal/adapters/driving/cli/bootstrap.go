package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apeko/appraisal-rag/internal/adapters/driven/ai"
	"github.com/apeko/appraisal-rag/internal/adapters/driven/config/file"
	"github.com/apeko/appraisal-rag/internal/adapters/driven/storage/memory"
	"github.com/apeko/appraisal-rag/internal/adapters/driven/storage/sqlite"
	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
	"github.com/apeko/appraisal-rag/internal/core/services"
	"github.com/apeko/appraisal-rag/internal/logger"
	"github.com/apeko/appraisal-rag/internal/metrics"
	"github.com/apeko/appraisal-rag/internal/normalisers"
	"github.com/apeko/appraisal-rag/internal/postprocessors/chunker"
)

// Services shared by the commands. They are built on first use, or set
// directly by tests.
var (
	ragService      driving.RAGService
	settingsService driving.SettingsService
	appSettings     *domain.Settings
	recorder        *metrics.Recorder

	closers []func()
)

// loadSettings opens the config directory and resolves the effective
// settings: file values over defaults, then environment, then flags.
func loadSettings() (*domain.Settings, error) {
	if appSettings != nil {
		return appSettings, nil
	}

	if err := file.LoadDotEnv(); err != nil {
		logger.Warn("Reading .env failed: %v", err)
	}

	svc, err := requireSettings()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := file.ApplyEnv(settings, os.LookupEnv); err != nil {
		return nil, err
	}
	if dbPath != "" {
		settings.Storage.Path = dbPath
	}
	if useMemoryDB {
		settings.Storage.Driver = domain.StorageDriverMemory
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	appSettings = settings
	return settings, nil
}

func resolveConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return file.DefaultDir()
}

// requireRAG returns the RAG service, building it and its adapters on first use.
func requireRAG() (driving.RAGService, error) {
	if ragService != nil {
		return ragService, nil
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.New()
	}

	docs, queries, err := openStore(settings.Storage)
	if err != nil {
		return nil, err
	}

	aiServices := ai.Init(*settings, recorder)
	closers = append(closers, aiServices.Close)

	var opts []services.RAGOption
	if dir, err := resolveConfigDir(); err == nil {
		prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
		if err != nil {
			logger.Warn("Prompt directory unavailable, using built-in prompt: %v", err)
		} else {
			opts = append(opts, services.WithPromptStore(prompts))
		}
	}

	opts = append(opts,
		services.WithMetrics(recorder),
		services.WithNormalisers(normalisers.Default()),
		services.WithChunking(settings.Chunking.Size, settings.Chunking.Overlap),
		services.WithDefaultTopK(settings.Search.TopK),
		services.WithGenerationTimeout(settings.LLM.Timeout),
		services.WithChatOptions(driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		}),
	)

	svc := services.NewRAGService(docs, queries, chunker.New(), aiServices.EmbeddingService, aiServices.LLMService, opts...)
	// Closed first so pending query logs reach the store.
	closers = append(closers, func() { svc.Close() })

	ragService = svc
	return svc, nil
}

// openStore opens the configured document store.
func openStore(cfg domain.StorageSettings) (driven.DocumentStore, driven.QueryStore, error) {
	switch cfg.Driver {
	case domain.StorageDriverMemory:
		logger.Debug("Using in-memory store")
		store := memory.NewStore()
		return store, store, nil

	case domain.StorageDriverSQLite:
		path := cfg.Path
		if path == "" && cfg.DataDir != "" {
			path = filepath.Join(cfg.DataDir, sqlite.DefaultFileName)
		}
		store, err := sqlite.NewStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Debug("Using SQLite store at %s", store.Path())
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Closing database: %v", err)
			}
		})
		return store.DocumentStore(), store.QueryStore(), nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidConfiguration, cfg.Driver)
	}
}

// requireSettings returns the settings service.
func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	dir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening configuration: %w", err)
	}
	settingsService = services.NewSettingsService(store)
	return settingsService, nil
}

// shutdown releases services in reverse order of creation.
func shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
}
