package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML document to plain text with one paragraph per
// block element.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := plaintext.Decode(raw.Content, raw.MIMEType)
	if err != nil {
		return nil, err
	}

	title := extractTitle(text)
	if title == "" {
		title = raw.FallbackTitle()
	}

	return &domain.NormalisedDocument{
		Title:    title,
		Content:  stripHTML(text),
		MIMEType: raw.MIMEType,
		Format:   "html",
	}, nil
}

var (
	titleTag     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	droppedTags  = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|template)\b[^>]*>.*?</(script|style|noscript|head|svg|template)>`)
	comments     = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTags    = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|ul|ol|table|blockquote|pre|section|article|header|footer|main)\b[^>]*>`)
	lineTags     = regexp.MustCompile(`(?i)<(br|hr)\s*/?>|</(li|tr|dt|dd)>`)
	cellTags     = regexp.MustCompile(`(?i)</t[dh]>`)
	allTags      = regexp.MustCompile(`<[^>]+>`)
	inlineSpaces = regexp.MustCompile(`[ \t\f\v]+`)
)

// extractTitle returns the decoded <title>, if any.
func extractTitle(content string) string {
	m := titleTag.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// stripHTML removes markup, keeping block boundaries as blank lines and
// line-level elements as single newlines.
func stripHTML(content string) string {
	content = droppedTags.ReplaceAllString(content, "")
	content = comments.ReplaceAllString(content, "")
	content = blockTags.ReplaceAllString(content, "\n\n")
	content = lineTags.ReplaceAllString(content, "\n")
	content = cellTags.ReplaceAllString(content, " ")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")

	var b strings.Builder
	blank := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(inlineSpaces.ReplaceAllString(line, " "))
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(line)
		blank = false
	}
	return b.String()
}
