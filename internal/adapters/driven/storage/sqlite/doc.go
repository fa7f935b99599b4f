// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements both store interfaces through a single database connection:
//
//   - DocumentStore: documents, chunks and their embeddings
//   - QueryStore: the query log, ranked chunk links and usage statistics
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files;
// applied versions are recorded in schema_migrations.
//
// Deleting a document cascades to its chunks, and deleting a chunk cascades to
// the query links that reference it.
//
// # Data Location
//
// By default, the database is stored at ~/.appraisal/data/appraisal.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
