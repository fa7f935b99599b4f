package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/services"
)

const uspapText = "USPAP Standards Rule 1-4 requires the appraiser to collect, verify and analyze all information necessary for credible assignment results."

func TestIngestCmd_File(t *testing.T) {
	svc := setupTestServices(t)

	path := filepath.Join(t.TempDir(), "uspap-2024.txt")
	require.NoError(t, os.WriteFile(path, []byte(uspapText), 0o600))

	out, err := execute(t, "", "ingest", path, "--type", "regulation")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested document 1: uspap 2024 (regulation)")

	doc, err := svc.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, domain.DocumentStateReady, doc.State)
}

func TestIngestCmd_Markdown(t *testing.T) {
	setupTestServices(t)

	path := filepath.Join(t.TempDir(), "standards.md")
	require.NoError(t, os.WriteFile(path, []byte("# USPAP Standards\n\n"+uspapText), 0o600))

	out, err := execute(t, "", "ingest", path, "--type", "regulation", "--json")
	require.NoError(t, err)

	var doc domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "USPAP Standards", doc.Title)
	assert.Equal(t, "markdown", doc.Metadata["format"])
}

func TestIngestCmd_Stdin(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, uspapText, "ingest", "--title", "USPAP", "--type", "regulation", "--json")
	require.NoError(t, err)

	var doc domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "USPAP", doc.Title)
	assert.Equal(t, uspapText, doc.Content)
}

func TestIngestCmd_Errors(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "ingest", filepath.Join(t.TempDir(), "missing.txt"), "--type", "regulation")
	assert.Error(t, err)

	_, err = execute(t, "   ", "ingest", "--title", "Empty", "--type", "regulation")
	assert.EqualError(t, err, "document is empty")

	path := filepath.Join(t.TempDir(), "front.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	_, err = execute(t, "", "ingest", path, "--type", "photo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "unsupported document format image/png")

	_, err = execute(t, uspapText, "ingest", "--title", "Bad", "--type", "regulation",
		"--chunk-size", "100", "--chunk-overlap", "100")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestSearchCmd(t *testing.T) {
	svc := setupTestServices(t)
	ingestDoc(t, svc, "USPAP 2024", "regulation", uspapText)

	out, err := execute(t, "", "search", "assignment", "results")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] USPAP 2024")
	assert.Contains(t, out, "regulation, document 1, chunk 0")
}

func TestSearchCmd_StdinAndJSON(t *testing.T) {
	svc := setupTestServices(t)
	ingestDoc(t, svc, "USPAP 2024", "regulation", uspapText)

	out, err := execute(t, "credible results\n", "search", "--json", "-k", "1")
	require.NoError(t, err)

	var results []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "USPAP 2024", results[0].DocumentTitle)
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "search", "comparable", "sales")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_TypeFilter(t *testing.T) {
	svc := setupTestServices(t)
	ingestDoc(t, svc, "USPAP 2024", "regulation", uspapText)

	out, err := execute(t, "", "search", "credible", "--type", "market_analysis")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestAskCmd_WithoutLLM(t *testing.T) {
	svc := setupTestServices(t)
	ingestDoc(t, svc, "USPAP 2024", "regulation", uspapText)

	out, err := execute(t, "", "ask", "What does rule 1-4 require?")
	require.NoError(t, err)
	assert.Contains(t, out, services.MessageLLMUnavailable)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] USPAP 2024 (regulation")
}

func TestAskCmd_EmptyCorpus(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "ask", "anything", "--json")
	require.NoError(t, err)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal([]byte(out), &answer))
	assert.Equal(t, services.MessageNoInformation, answer.Response)
	assert.Empty(t, answer.Sources)
}

func TestDocumentCmds(t *testing.T) {
	svc := setupTestServices(t)
	ingestDoc(t, svc, "USPAP 2024", "regulation", uspapText)
	ingestDoc(t, svc, "Austin Q3", "market_analysis", "Median sale price rose 3% quarter over quarter.")

	out, err := execute(t, "", "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USPAP 2024")
	assert.Contains(t, out, "Austin Q3")

	out, err = execute(t, "", "document", "list", "--type", "market_analysis")
	require.NoError(t, err)
	assert.NotContains(t, out, "USPAP 2024")
	assert.Contains(t, out, "Austin Q3")

	out, err = execute(t, "", "document", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Title:   USPAP 2024")
	assert.Contains(t, out, uspapText)

	out, err = execute(t, "", "doc", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted document 1")

	_, err = execute(t, "", "document", "get", "1")
	assert.EqualError(t, err, "document 1 not found")

	_, err = execute(t, "", "document", "delete", "1")
	assert.EqualError(t, err, "document 1 not found")
}

func TestDocumentGetCmd_Chunks(t *testing.T) {
	svc := setupTestServices(t)
	doc, err := svc.Ingest(context.Background(), domain.IngestRequest{
		Title:        "Long USPAP",
		Content:      strings.Repeat(uspapText+" ", 3),
		DocumentType: "regulation",
		ChunkSize:    200,
	})
	require.NoError(t, err)

	out, err := execute(t, "", "document", "get", fmt.Sprint(doc.ID), "--chunks")
	require.NoError(t, err)
	assert.Contains(t, out, "Long USPAP: 3 chunks")
	assert.Contains(t, out, "[0] ")
	assert.Contains(t, out, "embedded")

	resetFlags()
	out, err = execute(t, "", "document", "get", fmt.Sprint(doc.ID), "--chunks", "--json")
	require.NoError(t, err)
	var chunks []domain.Chunk
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, doc.ID, c.DocumentID)
	}
}

func TestDocumentCmds_InvalidArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "document", "get", "abc")
	assert.EqualError(t, err, `invalid document id "abc"`)

	_, err = execute(t, "", "document", "list", "--offset", "-1")
	assert.Error(t, err)

	out, err := execute(t, "", "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
}

func TestStatsCmd(t *testing.T) {
	svc := setupTestServices(t)
	ingestDoc(t, svc, "USPAP 2024", "regulation", uspapText)

	_, err := execute(t, "", "search", "credible", "results")
	require.NoError(t, err)
	svc.Wait()

	out, err := execute(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:         1")
	assert.Contains(t, out, "Queries:           1")
	assert.Contains(t, out, "regulation")
	assert.Contains(t, out, "credible results")
}

func TestConfigCmds(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "config", "set", "search.top_k", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Set search.top_k = 7")
	assert.Nil(t, appSettings)

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "top_k:        7")

	_, err = execute(t, "", "config", "set", "chunking.size", "big")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "", "config", "set", "llm.model")
	assert.EqualError(t, err, "a value is required for llm.model")
}

func TestConfigSet_APIKeyFromStdin(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "sk-abcdefghijkl\n", "config", "set", "llm.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "Set llm.api_key = sk-a...ijkl")
	assert.NotContains(t, out, "sk-abcdefghijkl")

	got, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-abcdefghijkl", got.LLM.APIKey)
}

func TestConfigKeysCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "config", "keys")
	require.NoError(t, err)
	for _, k := range services.SettingKeys() {
		assert.Contains(t, out, fmt.Sprintln(k))
	}
}
