package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and query statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, err := requireRAG()
	if err != nil {
		return err
	}

	stats, err := svc.UsageStatistics(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading statistics: %w", err)
	}

	if statsJSON {
		return outputJSON(cmd, stats)
	}

	cmd.Printf("Documents:         %d\n", stats.TotalDocuments)
	cmd.Printf("Chunks:            %d\n", stats.TotalChunks)
	cmd.Printf("Queries:           %d\n", stats.TotalQueries)
	cmd.Printf("Average relevance: %.3f\n", stats.AverageRelevance)

	if len(stats.DocumentTypeDistribution) > 0 {
		types := make([]string, 0, len(stats.DocumentTypeDistribution))
		for t := range stats.DocumentTypeDistribution {
			types = append(types, t)
		}
		sort.Strings(types)
		cmd.Println()
		cmd.Println("Document types:")
		for _, t := range types {
			cmd.Printf("  %-20s %d\n", t, stats.DocumentTypeDistribution[t])
		}
	}

	if len(stats.RecentQueries) > 0 {
		cmd.Println()
		cmd.Println("Recent queries:")
		for _, q := range stats.RecentQueries {
			cmd.Printf("  %s  %-50s %d chunks\n",
				q.CreatedAt.Format("2006-01-02 15:04"), truncate(q.QueryText, 50), q.ChunkCount)
		}
	}
	return nil
}
