// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document and chunk persistence
//   - QueryStore: Query log persistence and usage statistics
//   - Chunker: Splits document content into overlapping spans
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, every search
//     uses keyword fallback.
//   - LLMService: Text generation. Without it, answers list sources only.
//   - PromptStore: User-editable prompt templates. Without it, the built-in
//     answer prompt is used.
//   - NormaliserRegistry: Text extraction for uploaded files. Without it,
//     only UTF-8 text files are accepted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
