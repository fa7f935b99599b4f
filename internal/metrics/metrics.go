// Package metrics exposes Prometheus collectors for retrieval, ingestion and
// the HTTP API. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appraisal_rag"

// Recorder owns a private registry and the collectors registered on it.
type Recorder struct {
	registry *prom.Registry

	searches           *prom.CounterVec
	embeddingFailures  prom.Counter
	generationFailures prom.Counter
	queryLogFailures   prom.Counter
	documentsIngested  prom.Counter
	chunksIngested     prom.Counter
	cacheLookups       *prom.CounterVec
	httpRequests       *prom.CounterVec
	httpDuration       *prom.HistogramVec
}

// New creates a Recorder with process and Go runtime collectors included.
func New() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		searches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches served, by ranking mode.",
		}, []string{"mode"}),
		embeddingFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Texts for which no embedding could be produced.",
		}),
		generationFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "LLM calls that failed or returned no text.",
		}),
		queryLogFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "query_log_failures_total",
			Help:      "Query log writes that failed.",
		}),
		documentsIngested: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents ingested.",
		}),
		chunksIngested: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_ingested_total",
			Help:      "Chunks created by ingestion.",
		}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_lookups_total",
			Help:      "Embedding cache lookups, by result.",
		}, []string{"result"}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.searches,
		r.embeddingFailures,
		r.generationFailures,
		r.queryLogFailures,
		r.documentsIngested,
		r.chunksIngested,
		r.cacheLookups,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SearchServed counts a search answered by the given mode.
func (r *Recorder) SearchServed(mode string) {
	if r == nil {
		return
	}
	r.searches.WithLabelValues(mode).Inc()
}

// EmbeddingFailed counts a text left without an embedding.
func (r *Recorder) EmbeddingFailed() {
	if r == nil {
		return
	}
	r.embeddingFailures.Inc()
}

// GenerationFailed counts a failed or empty LLM reply.
func (r *Recorder) GenerationFailed() {
	if r == nil {
		return
	}
	r.generationFailures.Inc()
}

// QueryLogFailed counts a query log write that was dropped.
func (r *Recorder) QueryLogFailed() {
	if r == nil {
		return
	}
	r.queryLogFailures.Inc()
}

// DocumentIngested counts a document and its chunks.
func (r *Recorder) DocumentIngested(chunks int) {
	if r == nil {
		return
	}
	r.documentsIngested.Inc()
	r.chunksIngested.Add(float64(chunks))
}

// CacheLookup counts an embedding cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// HTTPRequest records a served request.
func (r *Recorder) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
