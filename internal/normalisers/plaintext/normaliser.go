package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise decodes the content as text. Content that is not UTF-8 is
// transcoded from the charset declared in the MIME type or sniffed from it.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := Decode(raw.Content, raw.MIMEType)
	if err != nil {
		return nil, err
	}

	return &domain.NormalisedDocument{
		Title:    raw.FallbackTitle(),
		Content:  strings.TrimSpace(content),
		MIMEType: raw.MIMEType,
		Format:   "text",
	}, nil
}

// Decode returns data as UTF-8 text with line endings normalised to "\n".
func Decode(data []byte, contentType string) (string, error) {
	if !utf8.Valid(data) {
		enc, name, _ := charset.DetermineEncoding(data, contentType)
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
		if err != nil {
			return "", fmt.Errorf("%w: transcode from %s: %v", domain.ErrInvalidInput, name, err)
		}
		if !utf8.Valid(decoded) {
			return "", fmt.Errorf("%w: content is not valid text", domain.ErrInvalidInput)
		}
		data = decoded
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
