// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// RAGService ingests documents and answers queries over them. Ranking is
// done in process by RankByVector and RankByKeyword, with a brute-force
// scan over every candidate chunk.
package services
