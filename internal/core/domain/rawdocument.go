package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument is an uploaded file before its text is extracted.
type RawDocument struct {
	// Filename is the original file name. It drives MIME detection and
	// the fallback title.
	Filename string

	// MIMEType is the declared content type. Empty or
	// application/octet-stream means detect from Filename and Content.
	MIMEType string

	Content []byte
}

// FallbackTitle derives a readable title from the file name,
// e.g. "uspap_2024-edition.pdf" becomes "uspap 2024 edition".
func (r RawDocument) FallbackTitle() string {
	name := filepath.Base(r.Filename)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}

// NormalisedDocument is the plain text extracted from a RawDocument.
type NormalisedDocument struct {
	// Title is taken from the document itself when it declares one,
	// otherwise from the file name.
	Title string

	Content string

	// MIMEType is the type the document was read as.
	MIMEType string

	// Format names the normaliser that produced the text, e.g. "markdown".
	Format string
}
