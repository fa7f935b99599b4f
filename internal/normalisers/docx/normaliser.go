package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

// MIMEType is the content type of Word documents.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the paragraphs of word/document.xml, one per block.
// Table cells are separated by tabs.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: docx archive has no word/document.xml", domain.ErrInvalidInput)
	}
	content, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document.xml: %v", domain.ErrInvalidInput, err)
	}

	title := ""
	if core, err := readPart(reader, "docProps/core.xml"); err == nil && core != nil {
		title = parseCoreTitle(core)
	}
	if title == "" {
		title = raw.FallbackTitle()
	}

	return &domain.NormalisedDocument{
		Title:    title,
		Content:  content,
		MIMEType: raw.MIMEType,
		Format:   "docx",
	}, nil
}

// readPart returns the named archive member, or nil when it is absent.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, name, err)
		}
		return data, nil
	}
	return nil, nil
}

// parseDocumentXML walks the WordprocessingML body collecting run text.
func parseDocumentXML(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
		cellCount  int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			case "tr":
				cellCount = 0
			case "tc":
				if cellCount > 0 {
					row := strings.TrimRight(current.String(), " ")
					current.Reset()
					current.WriteString(row)
					current.WriteByte('\t')
				}
				cellCount++
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				// Paragraphs inside a table cell stay on the row's line.
				if cellCount == 0 {
					paragraphs = appendParagraph(paragraphs, &current)
				} else {
					current.WriteByte(' ')
				}
			case "tr":
				paragraphs = appendParagraph(paragraphs, &current)
				cellCount = 0
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
	paragraphs = appendParagraph(paragraphs, &current)

	return strings.Join(paragraphs, "\n\n"), nil
}

func appendParagraph(paragraphs []string, b *strings.Builder) []string {
	text := strings.TrimSpace(b.String())
	b.Reset()
	if text == "" {
		return paragraphs
	}
	return append(paragraphs, text)
}

// coreXML is the part of docProps/core.xml that carries the title.
type coreXML struct {
	Title string `xml:"title"`
}

func parseCoreTitle(data []byte) string {
	var core coreXML
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
