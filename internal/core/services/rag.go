package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
	"github.com/apeko/appraisal-rag/internal/logger"
	"github.com/apeko/appraisal-rag/internal/metrics"
)

// Ensure RAGService implements the interface.
var _ driving.RAGService = (*RAGService)(nil)

// Fixed answer texts returned when generation cannot produce a reply.
const (
	MessageNoInformation  = "I couldn't find any relevant information to answer your question."
	MessageLLMUnavailable = "LLM service is not available. I can only provide the relevant documents."
	MessageEmptyResponse  = "I apologize, but I couldn't generate a proper response based on the available information."
	messageGenerationErr  = "I apologize, but I encountered an error while generating a response: "
)

const (
	// DefaultEmbedConcurrency is the number of embedding batches in flight during ingest.
	DefaultEmbedConcurrency = 4

	// DefaultEmbedBatchSize is the number of chunks sent in one embedding call.
	DefaultEmbedBatchSize = 16

	queryLogTimeout = 5 * time.Second
	healthTimeout   = 5 * time.Second
)

// RAGOption configures a RAGService.
type RAGOption func(*RAGService)

// WithPromptStore sets where the answer prompt template is loaded from.
func WithPromptStore(prompts driven.PromptStore) RAGOption {
	return func(s *RAGService) { s.prompts = prompts }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec *metrics.Recorder) RAGOption {
	return func(s *RAGService) { s.metrics = rec }
}

// WithNormalisers sets how uploaded files are turned into text.
func WithNormalisers(registry driven.NormaliserRegistry) RAGOption {
	return func(s *RAGService) { s.normalisers = registry }
}

// WithEmbedConcurrency sets how many batches are embedded in parallel.
func WithEmbedConcurrency(n int) RAGOption {
	return func(s *RAGService) {
		if n > 0 {
			s.embedConcurrency = n
		}
	}
}

// WithEmbedBatchSize sets how many chunks share one embedding call.
func WithEmbedBatchSize(n int) RAGOption {
	return func(s *RAGService) {
		if n > 0 {
			s.embedBatchSize = n
		}
	}
}

// WithGenerationTimeout bounds each LLM call. Zero leaves it unbounded.
func WithGenerationTimeout(d time.Duration) RAGOption {
	return func(s *RAGService) { s.generationTimeout = d }
}

// WithChatOptions sets the options sent with every completion.
func WithChatOptions(opts driven.ChatOptions) RAGOption {
	return func(s *RAGService) { s.chatOptions = opts }
}

// WithChunking sets the chunk parameters used when a request leaves them unset.
func WithChunking(size, overlap int) RAGOption {
	return func(s *RAGService) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

// WithDefaultTopK sets the result count used when a search leaves it unset.
func WithDefaultTopK(k int) RAGOption {
	return func(s *RAGService) {
		if k > 0 {
			s.defaultTopK = k
		}
	}
}

// RAGService ingests documents and answers retrieval queries over them.
type RAGService struct {
	docs     driven.DocumentStore
	queries  driven.QueryStore
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	llm      driven.LLMService
	prompts  driven.PromptStore
	metrics  *metrics.Recorder

	normalisers driven.NormaliserRegistry

	embedConcurrency  int
	embedBatchSize    int
	generationTimeout time.Duration
	chatOptions       driven.ChatOptions
	chunkSize         int
	chunkOverlap      int
	defaultTopK       int

	pending sync.WaitGroup
}

// NewRAGService creates a new retrieval service.
// The embedder and llm parameters are optional (can be nil).
func NewRAGService(
	docs driven.DocumentStore,
	queries driven.QueryStore,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	opts ...RAGOption,
) *RAGService {
	s := &RAGService{
		docs:              docs,
		queries:           queries,
		chunker:           chunker,
		embedder:          embedder,
		llm:               llm,
		embedConcurrency:  DefaultEmbedConcurrency,
		embedBatchSize:    DefaultEmbedBatchSize,
		generationTimeout: domain.DefaultLLMTimeout,
		chatOptions: driven.ChatOptions{
			MaxTokens:   domain.DefaultLLMMaxTokens,
			Temperature: domain.DefaultLLMTemperature,
		},
		defaultTopK: domain.DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores a document, splits it into chunks and embeds each chunk.
// A chunk that cannot be embedded is kept and marked, it never fails the ingest.
func (s *RAGService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Document, error) {
	logger.Section("Ingest")

	req = s.withChunkDefaults(req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	size, overlap := req.Chunking()

	doc := &domain.Document{
		Title:        req.Title,
		Content:      req.Content,
		DocumentType: req.DocumentType,
		Source:       req.Source,
		Metadata:     req.Metadata,
		State:        domain.DocumentStateIngesting,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	logger.Debug("Created document %d %q (%s)", doc.ID, doc.Title, doc.DocumentType)

	n, err := s.storeChunks(ctx, doc, req.Content, size, overlap)
	if err != nil {
		s.discard(ctx, doc.ID)
		return nil, err
	}

	s.metrics.DocumentIngested(n)
	logger.Info("Ingested document %d with %d chunks", doc.ID, n)
	return doc, nil
}

// storeChunks splits content, stores the chunks and embeds them, moving doc
// through the embedding and ready states. It returns the chunk count.
func (s *RAGService) storeChunks(ctx context.Context, doc *domain.Document, content string, size, overlap int) (int, error) {
	texts, err := s.chunker.Split(content, size, overlap)
	if err != nil {
		return 0, fmt.Errorf("chunk document %d: %w", doc.ID, err)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{DocumentID: doc.ID, Index: i, Content: text}
	}
	ids, err := s.docs.CreateChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("create chunks for document %d: %w", doc.ID, err)
	}
	for i := range chunks {
		chunks[i].ID = ids[i]
	}
	logger.Debug("Stored %d chunks (size=%d overlap=%d)", len(chunks), size, overlap)

	if err := s.advance(ctx, doc, domain.DocumentStateEmbedding); err != nil {
		return 0, err
	}
	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("embed chunks for document %d: %w", doc.ID, err)
	}
	if err := s.advance(ctx, doc, domain.DocumentStateReady); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// discard removes a document whose ingest failed, so a retried ingest does
// not leave a stale copy behind. It runs even when ctx is cancelled.
func (s *RAGService) discard(ctx context.Context, id int64) {
	if err := s.docs.DeleteDocument(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Removing document %d after failed ingest: %v", id, err)
	}
}

// IngestFile extracts the text of an uploaded file and ingests it. The
// request's title and source default to those derived from the file.
// Without normalisers only UTF-8 text is accepted.
func (s *RAGService) IngestFile(ctx context.Context, file domain.RawDocument, req domain.IngestRequest) (*domain.Document, error) {
	var norm *domain.NormalisedDocument
	if s.normalisers != nil {
		var err error
		if norm, err = s.normalisers.Normalise(ctx, &file); err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Filename, err)
		}
	} else {
		if !utf8.Valid(file.Content) {
			return nil, fmt.Errorf("%w: file content must be UTF-8 text", domain.ErrInvalidInput)
		}
		norm = &domain.NormalisedDocument{
			Title:    file.FallbackTitle(),
			Content:  string(file.Content),
			MIMEType: file.MIMEType,
		}
	}
	logger.Debug("Extracted %d bytes of %s text from %q", len(norm.Content), norm.Format, file.Filename)

	req.Content = norm.Content
	if strings.TrimSpace(req.Title) == "" {
		req.Title = norm.Title
	}
	if req.Source == "" {
		req.Source = file.Filename
	}

	metadata := maps.Clone(req.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	if _, ok := metadata["mime_type"]; !ok && norm.MIMEType != "" {
		metadata["mime_type"] = norm.MIMEType
	}
	if _, ok := metadata["format"]; !ok && norm.Format != "" {
		metadata["format"] = norm.Format
	}
	if len(metadata) > 0 {
		req.Metadata = metadata
	}

	return s.Ingest(ctx, req)
}

func (s *RAGService) withChunkDefaults(req domain.IngestRequest) domain.IngestRequest {
	if req.ChunkSize == 0 && s.chunkSize > 0 {
		req.ChunkSize = s.chunkSize
		if req.ChunkOverlap == nil && s.chunkOverlap < s.chunkSize {
			overlap := s.chunkOverlap
			req.ChunkOverlap = &overlap
		}
	}
	return req
}

func (s *RAGService) advance(ctx context.Context, doc *domain.Document, state domain.DocumentState) error {
	if err := s.docs.UpdateDocumentState(ctx, doc.ID, state); err != nil {
		return fmt.Errorf("set document %d %s: %w", doc.ID, state, err)
	}
	doc.State = state
	return nil
}

// embedChunks embeds chunks in batches, several batches at a time. Their
// indexes are already fixed, so the completion order does not matter.
func (s *RAGService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)

	for batch := range slices.Chunk(chunks, s.embedBatchSize) {
		g.Go(func() error {
			return s.embedBatch(gctx, batch)
		})
	}
	return g.Wait()
}

// embedBatch embeds batch in one call. If that call fails each chunk is
// embedded on its own, so one bad chunk does not mark the whole batch.
func (s *RAGService) embedBatch(ctx context.Context, batch []domain.Chunk) error {
	if s.embedder != nil && len(batch) > 1 {
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}
		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vecs) == len(batch) {
			for i, chunk := range batch {
				if len(vecs[i]) == 0 {
					if err := s.embedChunk(ctx, chunk); err != nil {
						return err
					}
					continue
				}
				if err := s.docs.UpdateChunkEmbedding(ctx, chunk.ID, vecs[i]); err != nil {
					return err
				}
			}
			return nil
		}
		logger.Debug("Batch of %d chunks not embedded (%d vectors, err=%v), retrying one by one",
			len(batch), len(vecs), err)
	}

	for _, chunk := range batch {
		if err := s.embedChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// embedChunk stores the chunk's embedding, or marks it unavailable.
func (s *RAGService) embedChunk(ctx context.Context, chunk domain.Chunk) error {
	vec, err := s.embed(ctx, chunk.Content)
	if err != nil {
		logger.Warn("Chunk %d of document %d has no embedding: %v", chunk.Index, chunk.DocumentID, err)
		return s.docs.MarkEmbeddingUnavailable(ctx, chunk.ID)
	}
	return s.docs.UpdateChunkEmbedding(ctx, chunk.ID, vec)
}

// embed returns the vector for text, or an error wrapping
// domain.ErrEmbeddingUnavailable for any failure.
func (s *RAGService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured: %w", domain.ErrEmbeddingUnavailable)
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err == nil && len(vec) == 0 {
		err = errors.New("empty vector")
	}
	if err != nil {
		s.metrics.EmbeddingFailed()
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

// retrieval is the outcome of ranking one query.
type retrieval struct {
	query     string
	embedding []float32
	mode      domain.SearchMode
	results   []domain.SearchResult
}

// Search ranks stored chunks against query. It ranks by embedding when the
// query and at least one candidate have one, and by keyword overlap otherwise.
// The query is logged in the background, even when nothing matched.
// A blank query returns domain.ErrInvalidInput and is not logged.
func (s *RAGService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	logger.Section("Search")

	if err := validateQuery(query); err != nil {
		return nil, err
	}
	r := s.retrieve(ctx, query, opts)
	s.logQuery(ctx, r, opts.UserID, nil)
	return r.results, nil
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	return nil
}

func (s *RAGService) retrieve(ctx context.Context, query string, opts domain.SearchOptions) retrieval {
	r := retrieval{query: strings.TrimSpace(query), results: []domain.SearchResult{}}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	logger.Debug("Query: %q (type=%q, top_k=%d)", r.query, opts.DocumentType, topK)

	vec, err := s.embed(ctx, r.query)
	if err != nil {
		logger.Warn("Query embedding unavailable, using keyword search: %v", err)
	}
	r.embedding = vec

	candidates, err := s.docs.ListCandidates(ctx, opts.DocumentType)
	if err != nil {
		logger.Warn("Loading search candidates failed: %v", err)
		candidates = nil
	}

	if vec != nil && hasEmbeddings(candidates) {
		r.mode = domain.SearchModeVector
		r.results = RankByVector(vec, candidates, topK)
	} else {
		r.mode = domain.SearchModeKeyword
		r.results = RankByKeyword(r.query, candidates, topK)
	}
	s.metrics.SearchServed(r.mode.String())
	logger.Debug("%s search over %d candidates returned %d results", r.mode, len(candidates), len(r.results))
	return r
}

// logQuery appends the query to the log on a goroutine of its own. The write
// outlives ctx and a failure is only logged.
func (s *RAGService) logQuery(ctx context.Context, r retrieval, userID *int64, resultText *string) {
	if s.queries == nil {
		return
	}
	record := &domain.QueryRecord{
		UserID:         userID,
		QueryText:      r.query,
		QueryEmbedding: r.embedding,
		ResultText:     resultText,
		Retrieved:      domain.RetrievedFrom(r.results),
	}

	detached := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		logCtx, cancel := context.WithTimeout(detached, queryLogTimeout)
		defer cancel()
		if _, err := s.queries.LogQuery(logCtx, record); err != nil {
			s.metrics.QueryLogFailed()
			logger.Warn("Logging query %q failed: %v", record.QueryText, err)
		}
	}()
}

// Wait blocks until every pending query log write has finished.
func (s *RAGService) Wait() {
	s.pending.Wait()
}

// Close drains pending query log writes.
func (s *RAGService) Close() error {
	s.Wait()
	return nil
}

// GenerateAnswer retrieves context for query and asks the LLM to answer it.
// Generation problems are reported in the response text and the sources are
// returned regardless.
func (s *RAGService) GenerateAnswer(ctx context.Context, query string, opts domain.SearchOptions) (*domain.Answer, error) {
	logger.Section("Generate Answer")

	if err := validateQuery(query); err != nil {
		return nil, err
	}
	r := s.retrieve(ctx, query, opts)
	answer := &domain.Answer{Sources: domain.CitationsFrom(r.results)}

	switch {
	case len(r.results) == 0:
		answer.Response = MessageNoInformation
	case s.llm == nil:
		answer.Response = MessageLLMUnavailable
	default:
		answer.Response = s.generate(ctx, r)
	}

	response := answer.Response
	s.logQuery(ctx, r, opts.UserID, &response)
	return answer, nil
}

func (s *RAGService) generate(ctx context.Context, r retrieval) string {
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: domain.RenderPrompt(s.promptTemplate(), buildContext(r.results), r.query)},
		{Role: driven.RoleUser, Content: r.query},
	}

	if s.generationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.generationTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.llm.Chat(ctx, messages, s.chatOptions)
	if err != nil {
		s.metrics.GenerationFailed()
		logger.Warn("Generation failed after %v: %v", time.Since(start), err)
		return messageGenerationErr + err.Error()
	}
	if strings.TrimSpace(text) == "" {
		s.metrics.GenerationFailed()
		logger.Warn("Generation returned an empty response")
		return MessageEmptyResponse
	}
	logger.Debug("Generated %d characters in %v", len(text), time.Since(start))
	return text
}

func (s *RAGService) promptTemplate() string {
	if s.prompts == nil {
		return domain.DefaultAnswerPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil || strings.TrimSpace(tmpl) == "" {
		if err != nil {
			logger.Warn("Loading prompt %q failed, using default: %v", driven.PromptAnswerSystem, err)
		}
		return domain.DefaultAnswerPrompt
	}
	return tmpl
}

// buildContext renders retrieved chunks as the context block of the prompt.
func buildContext(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Document: %s\n%s", r.DocumentTitle, r.Content))
	}
	return strings.Join(parts, "\n\n")
}

// UsageStatistics reports store totals. A store failure yields zeroed
// statistics rather than an error.
func (s *RAGService) UsageStatistics(ctx context.Context) (*domain.UsageStatistics, error) {
	if s.queries == nil {
		stats := domain.EmptyStatistics()
		return &stats, nil
	}
	stats, err := s.queries.UsageStatistics(ctx)
	if err != nil {
		logger.Warn("Reading usage statistics failed: %v", err)
		empty := domain.EmptyStatistics()
		return &empty, nil
	}
	return stats, nil
}

// GetDocument retrieves a document by ID.
func (s *RAGService) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, id)
}

// GetChunks returns a document's chunks ordered by index.
func (s *RAGService) GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.docs.GetChunks(ctx, documentID)
}

// ListDocuments returns a page of documents, newest first.
func (s *RAGService) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	return s.docs.ListDocuments(ctx, filter.Normalised())
}

// DeleteDocument removes a document with its chunks.
func (s *RAGService) DeleteDocument(ctx context.Context, id int64) error {
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return err
	}
	logger.Info("Deleted document %d", id)
	return nil
}

// Health reports the service status and pings the LLM.
func (s *RAGService) Health(ctx context.Context) domain.Health {
	h := domain.Health{
		Status:    domain.StatusHealthy,
		LLMStatus: domain.StatusNotConfigured,
		Embedder:  "none",
	}
	if s.embedder != nil {
		h.Embedder = s.embedder.ModelName()
	}
	if s.llm == nil {
		return h
	}

	h.LLMModel = s.llm.ModelName()
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := s.llm.Ping(ctx); err != nil {
		logger.Warn("LLM health check failed: %v", err)
		h.LLMStatus = domain.StatusUnhealthy
		return h
	}
	h.LLMStatus = domain.StatusHealthy
	return h
}
