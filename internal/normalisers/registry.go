package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/normalisers/docx"
	"github.com/apeko/appraisal-rag/internal/normalisers/html"
	"github.com/apeko/appraisal-rag/internal/normalisers/markdown"
	"github.com/apeko/appraisal-rag/internal/normalisers/pdf"
	"github.com/apeko/appraisal-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Extensions that content sniffing cannot tell apart from plain text or zip.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".htm":      "text/html",
	".html":     "text/html",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":      "application/pdf",
}

// Registry dispatches documents to normalisers by MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range n.SupportedMIMETypes() {
		list := append(r.byMIME[t], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[t] = list
	}
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for t := range r.byMIME {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Normalise extracts the text of raw with the best matching normaliser.
// Unregistered text/* types fall back to text/plain.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := baseType(raw.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DetectMIME(raw.Filename, raw.Content)
	}

	n := r.lookup(mimeType)
	if n == nil && strings.HasPrefix(mimeType, "text/") {
		n = r.lookup("text/plain")
	}
	if n == nil {
		return nil, fmt.Errorf("%w: unsupported document format %s", domain.ErrInvalidInput, mimeType)
	}

	typed := *raw
	typed.MIMEType = mimeType
	return n.Normalise(ctx, &typed)
}

func (r *Registry) lookup(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if list := r.byMIME[mimeType]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// DetectMIME determines a MIME type from the file extension, falling back
// to content sniffing.
func DetectMIME(filename string, content []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	if len(content) == 0 {
		return "application/octet-stream"
	}
	return baseType(mimetype.Detect(content).String())
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if t, _, err := mime.ParseMediaType(contentType); err == nil {
		return t
	}
	return strings.ToLower(contentType)
}
