package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/normalisers/docx"
)

// stubNormaliser records that it was chosen.
type stubNormaliser struct {
	types    []string
	priority int
	format   string
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	return &domain.NormalisedDocument{Content: string(raw.Content), MIMEType: raw.MIMEType, Format: s.format}, nil
}

func TestDefault_SupportedMIMETypes(t *testing.T) {
	types := Default().SupportedMIMETypes()

	for _, want := range []string{"text/plain", "text/markdown", "text/html", "application/pdf", docx.MIMEType} {
		assert.Contains(t, types, want)
	}
	assert.IsIncreasing(t, types)
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 5, format: "low"})
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 90, format: "high"})
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 50, format: "mid"})

	doc, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/plain", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "high", doc.Format)
}

func TestRegistry_Normalise(t *testing.T) {
	r := Default()
	ctx := context.Background()

	tests := []struct {
		name       string
		raw        domain.RawDocument
		wantFormat string
		wantMIME   string
	}{
		{
			name:       "declared type with parameters",
			raw:        domain.RawDocument{Filename: "notes", MIMEType: "text/markdown; charset=utf-8", Content: []byte("# Notes")},
			wantFormat: "markdown",
			wantMIME:   "text/markdown",
		},
		{
			name:       "extension beats sniffing",
			raw:        domain.RawDocument{Filename: "USPAP.MD", MIMEType: "application/octet-stream", Content: []byte("# USPAP")},
			wantFormat: "markdown",
			wantMIME:   "text/markdown",
		},
		{
			name:       "sniffed html",
			raw:        domain.RawDocument{Filename: "page", Content: []byte("<!DOCTYPE html><html><body><p>Hi</p></body></html>")},
			wantFormat: "html",
			wantMIME:   "text/html",
		},
		{
			name:       "sniffed text",
			raw:        domain.RawDocument{Filename: "notes", Content: []byte("Comparable sales adjusted for GLA.")},
			wantFormat: "text",
			wantMIME:   "text/plain",
		},
		{
			name:       "unregistered text type falls back to plain text",
			raw:        domain.RawDocument{Filename: "data", MIMEType: "text/x-log", Content: []byte("line")},
			wantFormat: "text",
			wantMIME:   "text/x-log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			doc, err := r.Normalise(ctx, &raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, doc.Format)
			assert.Equal(t, tt.wantMIME, doc.MIMEType)
		})
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := Default()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{Filename: "photo.png", MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "unsupported document format image/png")

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMIME("report.PDF", nil))
	assert.Equal(t, docx.MIMEType, DetectMIME("report.docx", nil))
	assert.Equal(t, "application/octet-stream", DetectMIME("blob", nil))
	assert.Equal(t, "application/pdf", DetectMIME("blob", []byte("%PDF-1.7\n")))
	assert.Equal(t, "text/plain", DetectMIME("blob", []byte("plain words")))
}
