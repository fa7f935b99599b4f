// Package domain defines the core business entities for the appraisal
// retrieval service.
//
// This package is the innermost layer of the hexagon. It has NO external
// dependencies and defines the fundamental types:
//
//   - Document: An ingested reference document (appraisal report, market analysis)
//   - Chunk: A retrievable unit of a document with its embedding
//   - QueryRecord: A logged retrieval query and the chunks it returned
//   - SearchResult / Answer: What retrieval and generation hand back
//   - Settings: Application configuration
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
