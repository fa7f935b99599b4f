package driven

import (
	"context"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// Normaliser extracts plain text from documents of specific MIME types.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50, fallbacks 1-9.
	Priority() int

	// Normalise extracts the text of raw.
	// Returns domain.ErrInvalidInput when raw cannot be read.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error)
}

// NormaliserRegistry selects the normaliser for a document by MIME type.
type NormaliserRegistry interface {
	// Normalise detects the MIME type of raw when it is not declared and
	// dispatches to the highest-priority normaliser for it.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
