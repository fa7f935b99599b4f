package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a markdown document to plain text. Paragraph breaks
// survive so the chunker can still split on them.
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
		Content:  stripMarkdown(text),
		MIMEType: raw.MIMEType,
		Format:   "markdown",
	}, nil
}

var (
	fenceLine     = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis      = regexp.MustCompile(`(?m)(^|[^\w*])(\*\*|__|\*|_)([^\s*_](?:[^*_\n]*[^\s*_])?)(\*\*|__|\*|_)`)
	blockquote    = regexp.MustCompile(`(?m)^>[ \t]?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	tableRule     = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractTitle returns the text of the first H1 heading, if any.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes markdown syntax while keeping the text it wraps.
func stripMarkdown(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "${1}${3}")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
