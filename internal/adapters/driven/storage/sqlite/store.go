package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/apeko/appraisal-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

// DefaultFileName is the database file name used inside the data directory.
const DefaultFileName = "appraisal.db"

// Store is a unified SQLite-based storage that provides access to
// the document and query stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the SQLite database at dbPath.
// If dbPath is empty, defaults to ~/.appraisal/data/appraisal.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".appraisal", "data", DefaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// foreign_keys is set per connection through the DSN so every pooled
	// connection enforces the cascades.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// QueryStore returns a QueryStore interface backed by this store.
func (s *Store) QueryStore() driven.QueryStore {
	return &queryStore{store: s}
}

// migrate runs all pending migrations and records their versions.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// persistErr tags a database failure with domain.ErrPersistence.
func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// CreateDocument inserts a document and assigns its ID.
func (s *documentStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.State == "" {
		doc.State = domain.DocumentStateIngesting
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO rag_documents (title, content, source, document_type, metadata, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.Title, doc.Content, nullString(doc.Source), doc.DocumentType, metadata,
		string(doc.State), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return persistErr("saving document", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return persistErr("reading document id", err)
	}
	doc.ID = id
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, content, source, document_type, metadata, state, created_at, updated_at
		FROM rag_documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// ListDocuments returns documents newest first, optionally filtered by type.
func (s *documentStore) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	filter = filter.Normalised()

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, content, source, document_type, metadata, state, created_at, updated_at
		FROM rag_documents
		WHERE (? = '' OR document_type = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, filter.DocumentType, filter.DocumentType, filter.Limit, filter.Offset)
	if err != nil {
		return nil, persistErr("querying documents", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, persistErr("iterating documents", err)
	}

	return docs, nil
}

// UpdateDocumentState moves a document forward through its lifecycle.
func (s *documentStore) UpdateDocumentState(ctx context.Context, id int64, state domain.DocumentState) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if !doc.State.CanAdvanceTo(state) {
		return fmt.Errorf("%w: document %d cannot move from %s to %s",
			domain.ErrInvalidInput, id, doc.State, state)
	}

	_, err = s.store.db.ExecContext(ctx,
		"UPDATE rag_documents SET state = ?, updated_at = ? WHERE id = ?",
		string(state), time.Now().UTC(), id)
	if err != nil {
		return persistErr("updating document state", err)
	}
	return nil
}

// DeleteDocument removes a document; chunks and query links cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM rag_documents WHERE id = ?", id)
	if err != nil {
		return persistErr("deleting document", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("deleting document", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateChunks stores chunks in one transaction and returns their IDs in order.
func (s *documentStore) CreateChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	if len(chunks) == 0 {
		return []int64{}, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rag_document_chunks (document_id, chunk_index, content, embedding, embedding_unavailable, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, persistErr("preparing statement", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]int64, 0, len(chunks))
	for _, chunk := range chunks {
		res, err := stmt.ExecContext(ctx, chunk.DocumentID, chunk.Index, chunk.Content,
			float32SliceToBytes(chunk.Embedding), chunk.EmbeddingUnavailable, now)
		if err != nil {
			return nil, persistErr(fmt.Sprintf("saving chunk %d", chunk.Index), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, persistErr("reading chunk id", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("committing transaction", err)
	}
	return ids, nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, embedding, embedding_unavailable
		FROM rag_document_chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, persistErr("querying chunks", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, persistErr("iterating chunks", err)
	}

	return chunks, nil
}

// UpdateChunkEmbedding stores the embedding for a chunk.
func (s *documentStore) UpdateChunkEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for chunk %d", domain.ErrInvalidInput, chunkID)
	}
	return s.updateChunk(ctx, chunkID,
		"UPDATE rag_document_chunks SET embedding = ?, embedding_unavailable = 0 WHERE id = ?",
		float32SliceToBytes(embedding), chunkID)
}

// MarkEmbeddingUnavailable records that a chunk could not be embedded.
func (s *documentStore) MarkEmbeddingUnavailable(ctx context.Context, chunkID int64) error {
	return s.updateChunk(ctx, chunkID,
		"UPDATE rag_document_chunks SET embedding = NULL, embedding_unavailable = 1 WHERE id = ?",
		chunkID)
}

func (s *documentStore) updateChunk(ctx context.Context, chunkID int64, query string, args ...any) error {
	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistErr(fmt.Sprintf("updating chunk %d", chunkID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(fmt.Sprintf("updating chunk %d", chunkID), err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListCandidates returns every chunk joined with its document, ordered by chunk ID.
func (s *documentStore) ListCandidates(ctx context.Context, documentType string) ([]domain.CandidateChunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.embedding, c.embedding_unavailable,
			d.title, d.document_type
		FROM rag_document_chunks c
		JOIN rag_documents d ON d.id = c.document_id
		WHERE (? = '' OR d.document_type = ?)
		ORDER BY c.id
	`, documentType, documentType)
	if err != nil {
		return nil, persistErr("querying candidates", err)
	}
	defer rows.Close()

	candidates := []domain.CandidateChunk{}
	for rows.Next() {
		var (
			c           domain.CandidateChunk
			embedding   []byte
			unavailable bool
		)
		if err := rows.Scan(&c.Chunk.ID, &c.Chunk.DocumentID, &c.Chunk.Index, &c.Chunk.Content,
			&embedding, &unavailable, &c.DocumentTitle, &c.DocumentType); err != nil {
			return nil, persistErr("scanning candidate", err)
		}
		c.Chunk.Embedding = bytesToFloat32Slice(embedding)
		c.Chunk.EmbeddingUnavailable = unavailable
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, persistErr("iterating candidates", err)
	}

	return candidates, nil
}

// ==================== Query Store ====================

// queryStore implements driven.QueryStore.
type queryStore struct {
	store *Store
}

var _ driven.QueryStore = (*queryStore)(nil)

// LogQuery records a query and its ranked chunks. Links to chunks that no
// longer exist are dropped.
func (s *queryStore) LogQuery(ctx context.Context, record *domain.QueryRecord) (int64, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO rag_queries (user_id, query_text, query_embedding, result_text, relevance_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, nullInt64(record.UserID), record.QueryText, float32SliceToBytes(record.QueryEmbedding),
		nullStringPtr(record.ResultText), nullFloat64(record.RelevanceScore), record.CreatedAt)
	if err != nil {
		return 0, persistErr("saving query", err)
	}

	queryID, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("reading query id", err)
	}

	if len(record.Retrieved) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rag_query_chunks (query_id, chunk_id, similarity_score, rank)
			SELECT ?, ?, ?, ?
			WHERE EXISTS (SELECT 1 FROM rag_document_chunks WHERE id = ?)
		`)
		if err != nil {
			return 0, persistErr("preparing statement", err)
		}
		defer stmt.Close()

		// Chunks deleted since the search are skipped; ranks stay dense.
		rank := 0
		for _, r := range record.Retrieved {
			res, err := stmt.ExecContext(ctx, queryID, r.ChunkID, r.Similarity, rank, r.ChunkID)
			if err != nil {
				return 0, persistErr("saving query chunk", err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				rank++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("committing transaction", err)
	}

	record.ID = queryID
	return queryID, nil
}

// UsageStatistics aggregates document, chunk and query counts.
func (s *queryStore) UsageStatistics(ctx context.Context) (*domain.UsageStatistics, error) {
	stats := domain.EmptyStatistics()
	db := s.store.db

	row := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM rag_documents),
			(SELECT COUNT(*) FROM rag_document_chunks),
			(SELECT COUNT(*) FROM rag_queries),
			(SELECT COALESCE(AVG(relevance_score), 0) FROM rag_queries WHERE relevance_score IS NOT NULL)
	`)
	if err := row.Scan(&stats.TotalDocuments, &stats.TotalChunks, &stats.TotalQueries,
		&stats.AverageRelevance); err != nil {
		return nil, persistErr("counting totals", err)
	}

	typeRows, err := db.QueryContext(ctx,
		"SELECT document_type, COUNT(*) FROM rag_documents GROUP BY document_type")
	if err != nil {
		return nil, persistErr("querying type distribution", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var (
			docType string
			count   int
		)
		if err := typeRows.Scan(&docType, &count); err != nil {
			return nil, persistErr("scanning type distribution", err)
		}
		stats.DocumentTypeDistribution[docType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, persistErr("iterating type distribution", err)
	}

	recentRows, err := db.QueryContext(ctx, `
		SELECT q.id, q.query_text, q.user_id, q.created_at, q.relevance_score,
			(SELECT COUNT(*) FROM rag_query_chunks qc WHERE qc.query_id = q.id)
		FROM rag_queries q
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT ?
	`, domain.RecentQueryLimit)
	if err != nil {
		return nil, persistErr("querying recent queries", err)
	}
	defer recentRows.Close()

	for recentRows.Next() {
		var (
			rq        domain.RecentQuery
			userID    sql.NullInt64
			relevance sql.NullFloat64
		)
		if err := recentRows.Scan(&rq.ID, &rq.QueryText, &userID, &rq.CreatedAt, &relevance,
			&rq.ChunkCount); err != nil {
			return nil, persistErr("scanning recent query", err)
		}
		if userID.Valid {
			uid := userID.Int64
			rq.UserID = &uid
		}
		rq.RelevanceScore = relevance.Float64
		stats.RecentQueries = append(stats.RecentQueries, rq)
	}
	if err := recentRows.Err(); err != nil {
		return nil, persistErr("iterating recent queries", err)
	}

	return &stats, nil
}

// ==================== Helpers ====================

// float32SliceToBytes converts a float32 slice to little-endian bytes.
// A nil slice is stored as NULL.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts little-endian bytes back to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func marshalMetadata(metadata map[string]any) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("%w: marshalling metadata: %w", domain.ErrInvalidInput, err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc      domain.Document
		source   sql.NullString
		metadata sql.NullString
		state    string
	)

	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &source, &doc.DocumentType,
		&metadata, &state, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, persistErr("scanning document", err)
	}

	doc.Source = source.String
	doc.State = domain.DocumentState(state)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
			return nil, persistErr("unmarshalling metadata", err)
		}
	}

	return &doc, nil
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var (
		chunk       domain.Chunk
		embedding   []byte
		unavailable bool
	)

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content,
		&embedding, &unavailable); err != nil {
		return nil, persistErr("scanning chunk", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embedding)
	chunk.EmbeddingUnavailable = unavailable
	return &chunk, nil
}
