package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// createTestDOCX creates a minimal DOCX archive in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml": documentXML,
		"docProps/core.xml": coreXML,
	}
	for name, body := range parts {
		if body == "" {
			continue
		}
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const reportXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Subject Property</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Single family, </w:t></w:r><w:r><w:t>1,850 sq ft.</w:t></w:r></w:p>
<w:p></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Comp</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Price</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>12 Oak St</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>$410,000</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>
</w:body>
</w:document>`

const coreTitleXML = `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Appraisal Report 2024-117</dc:title>
</cp:coreProperties>`

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "report.docx",
		MIMEType: MIMEType,
		Content:  createTestDOCX(t, reportXML, coreTitleXML),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Appraisal Report 2024-117", doc.Title)
	assert.Equal(t, "docx", doc.Format)
	assert.Equal(t, "Subject Property\n\n"+
		"Single family, 1,850 sq ft.\n\n"+
		"Comp\tPrice\n\n"+
		"12 Oak St\t$410,000\n\n"+
		"Line one\nLine two", doc.Content)
}

func TestNormalise_TitleFallback(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "oak_street-report.docx",
		Content:  createTestDOCX(t, reportXML, ""),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "oak street report", doc.Title)
}

func TestNormalise_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		raw  *domain.RawDocument
	}{
		{"nil document", nil},
		{"not a zip", &domain.RawDocument{Content: []byte("plain text")}},
		{"no document part", &domain.RawDocument{Content: createTestDOCX(t, "", coreTitleXML)}},
		{"malformed xml", &domain.RawDocument{Content: createTestDOCX(t, "<w:document><w:body>", "")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().Normalise(context.Background(), tt.raw)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, doc)
		})
	}
}
