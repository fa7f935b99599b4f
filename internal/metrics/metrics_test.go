package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.SearchServed("vector")
	r.SearchServed("vector")
	r.SearchServed("keyword")
	r.EmbeddingFailed()
	r.GenerationFailed()
	r.QueryLogFailed()
	r.DocumentIngested(7)
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.searches.WithLabelValues("vector")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.searches.WithLabelValues("keyword")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.embeddingFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.generationFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.queryLogFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.documentsIngested))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.chunksIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
}

// TestRecorder_Nil tests that a nil recorder is a no-op
func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.SearchServed("vector")
		r.EmbeddingFailed()
		r.GenerationFailed()
		r.QueryLogFailed()
		r.DocumentIngested(1)
		r.CacheLookup(true)
		r.HTTPRequest("GET", "/health", 200, time.Millisecond)
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.HTTPRequest("POST", "/api/v1/rag/search", 200, 20*time.Millisecond)
	r.SearchServed("keyword")

	server := httptest.NewServer(r.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `appraisal_rag_searches_total{mode="keyword"} 1`)
	assert.Contains(t, text, `appraisal_rag_http_requests_total{method="POST",route="/api/v1/rag/search",status="200"} 1`)
	assert.Contains(t, text, "appraisal_rag_http_request_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
