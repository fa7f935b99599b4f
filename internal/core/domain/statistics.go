package domain

import "time"

// RecentQueryLimit is the number of recent queries reported in statistics.
const RecentQueryLimit = 10

// UsageStatistics summarises the contents of the store and its query log.
type UsageStatistics struct {
	TotalDocuments int
	TotalChunks    int
	TotalQueries   int

	// AverageRelevance is the mean of non-null relevance scores, 0 when none.
	AverageRelevance float64

	// DocumentTypeDistribution maps document type to document count.
	DocumentTypeDistribution map[string]int

	// RecentQueries holds up to RecentQueryLimit queries, newest first.
	RecentQueries []RecentQuery
}

// RecentQuery is a summary of one logged query.
type RecentQuery struct {
	ID        int64
	QueryText string
	UserID    *int64
	CreatedAt time.Time

	// RelevanceScore is 0 when the query has no score.
	RelevanceScore float64

	// ChunkCount is the number of chunks the query returned.
	ChunkCount int
}

// EmptyStatistics returns the zero-valued statistics reported when the
// store cannot be read.
func EmptyStatistics() UsageStatistics {
	return UsageStatistics{
		DocumentTypeDistribution: map[string]int{},
		RecentQueries:            []RecentQuery{},
	}
}
