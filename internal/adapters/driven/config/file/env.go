package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// Environment variables that override the settings file.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvAPIKey       = "NEBIUS_API_KEY"
	EnvEndpoint     = "NEBIUS_ENDPOINT"
	EnvModel        = "MODEL_NAME"
	EnvDatabasePath = "DATABASE_PATH"
	EnvPort         = "PORT"
	EnvHost         = "HOST"
)

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings with values from lookup, usually os.LookupEnv.
// The API key and endpoint apply to the embedding client as well when it has
// none of its own.
func ApplyEnv(settings *domain.Settings, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		settings.LLM.APIKey = v
		if settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = v
		}
	}
	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		settings.LLM.BaseURL = v
		if settings.Embedding.BaseURL == "" || settings.Embedding.BaseURL == domain.DefaultLLMBaseURL {
			settings.Embedding.BaseURL = v
		}
	}
	if v, ok := lookup(EnvModel); ok && v != "" {
		settings.LLM.Model = v
	}
	if v, ok := lookup(EnvDatabasePath); ok && v != "" {
		settings.Storage.Path = v
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		settings.Server.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port number", domain.ErrInvalidConfiguration, EnvPort, v)
		}
		settings.Server.Port = port
	}
	return nil
}
