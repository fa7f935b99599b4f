package driving

import "github.com/apeko/appraisal-rag/internal/core/domain"

// SettingsService reads and writes application settings.
type SettingsService interface {
	// Get returns the stored settings merged over the defaults.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// Set stores a single key given in its string form, e.g. "llm.model".
	Set(key, value string) error
}
