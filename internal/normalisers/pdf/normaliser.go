// Package pdf extracts text from PDF documents with github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/logger"
)

// maxTitleRunes bounds a title taken from the first line of text.
const maxTitleRunes = 120

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page, pages separated by a blank line.
// Pages that fail to decode are skipped.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := openReader(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable pdf: %v", domain.ErrInvalidInput, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(reader.Page(i))
		if err != nil {
			logger.Warn("Skipping page %d of %s: %v", i, raw.Filename, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	content := strings.Join(pages, "\n\n")

	title := infoTitle(reader)
	if title == "" {
		title = extractTitle(content)
	}
	if title == "" {
		title = raw.FallbackTitle()
	}

	return &domain.NormalisedDocument{
		Title:    title,
		Content:  content,
		MIMEType: raw.MIMEType,
		Format:   "pdf",
	}, nil
}

// openReader parses the cross-reference table. The parser panics on some
// malformed inputs.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("parse: %v", p)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("decode: %v", p)
		}
	}()
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// infoTitle returns the Title entry of the document information dictionary.
func infoTitle(r *pdf.Reader) (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	return strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())
}

// extractTitle returns the first non-empty line when it is short enough to
// be a heading.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleRunes {
			return ""
		}
		return line
	}
	return ""
}
