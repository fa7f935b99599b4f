package domain

// Component status values reported by health checks.
const (
	StatusHealthy       = "healthy"
	StatusUnhealthy     = "unhealthy"
	StatusNotConfigured = "not_configured"
)

// Health is the result of a service health check.
type Health struct {
	Status    string
	LLMStatus string
	Embedder  string
	LLMModel  string
}
