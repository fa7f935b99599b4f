package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDocument_Fields tests Document structure fields
func TestDocument_Fields(t *testing.T) {
	now := time.Now()

	doc := Document{
		ID:           42,
		Title:        "Elm Street Appraisal",
		Content:      "Three bedroom colonial.",
		DocumentType: "appraisal_report",
		Source:       "elm.txt",
		Metadata:     map[string]any{"appraiser": "R. Vega", "year": 2023},
		State:        DocumentStateReady,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, "Elm Street Appraisal", doc.Title)
	assert.Equal(t, "appraisal_report", doc.DocumentType)
	assert.Equal(t, "elm.txt", doc.Source)
	assert.Equal(t, "R. Vega", doc.Metadata["appraiser"])
	assert.Equal(t, 2023, doc.Metadata["year"])
	assert.Equal(t, DocumentStateReady, doc.State)
	assert.Equal(t, now, doc.CreatedAt)
}

func TestDocumentState_IsValid(t *testing.T) {
	tests := []struct {
		state DocumentState
		valid bool
	}{
		{DocumentStateIngesting, true},
		{DocumentStateEmbedding, true},
		{DocumentStateReady, true},
		{"", false},
		{"deleted", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.state.IsValid())
		})
	}
}

// TestDocumentState_CanAdvanceTo tests that the lifecycle never regresses
func TestDocumentState_CanAdvanceTo(t *testing.T) {
	assert.True(t, DocumentStateIngesting.CanAdvanceTo(DocumentStateEmbedding))
	assert.True(t, DocumentStateIngesting.CanAdvanceTo(DocumentStateReady))
	assert.True(t, DocumentStateEmbedding.CanAdvanceTo(DocumentStateReady))
	assert.True(t, DocumentStateReady.CanAdvanceTo(DocumentStateReady))

	assert.False(t, DocumentStateReady.CanAdvanceTo(DocumentStateEmbedding))
	assert.False(t, DocumentStateEmbedding.CanAdvanceTo(DocumentStateIngesting))
	assert.False(t, DocumentStateIngesting.CanAdvanceTo("unknown"))
}

func TestChunk_HasEmbedding(t *testing.T) {
	assert.False(t, Chunk{}.HasEmbedding())
	assert.False(t, Chunk{Embedding: []float32{}}.HasEmbedding())
	assert.True(t, Chunk{Embedding: []float32{0.1}}.HasEmbedding())
}

func TestDocumentFilter_Normalised(t *testing.T) {
	f := DocumentFilter{}.Normalised()
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = DocumentFilter{Limit: -3, Offset: -1, DocumentType: "market_analysis"}.Normalised()
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, "market_analysis", f.DocumentType)

	f = DocumentFilter{Limit: 10, Offset: 20}.Normalised()
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)
}
