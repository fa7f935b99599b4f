package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

// Flags shared by search and ask.
type queryFlags struct {
	docType string
	topK    int
	userID  int64
	json    bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.docType, "type", "", "only consider documents of this type")
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "number of chunks to retrieve (default from settings)")
	cmd.Flags().Int64Var(&f.userID, "user", 0, "user id recorded with the query")
	cmd.Flags().BoolVar(&f.json, "json", false, "output as JSON")
}

func (f *queryFlags) options() domain.SearchOptions {
	opts := domain.SearchOptions{DocumentType: f.docType, TopK: f.topK}
	if f.userID > 0 {
		id := f.userID
		opts.UserID = &id
	}
	return opts
}

var searchFlags queryFlags

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search reference documents",
	Long: `Ranks stored chunks against the query by embedding similarity, falling back
to keyword overlap when embeddings are unavailable.`,
	RunE: runSearch,
}

func init() {
	searchFlags.register(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := readText(cmd, args, "query")
	if err != nil {
		return err
	}

	svc, err := requireRAG()
	if err != nil {
		return err
	}

	results, err := svc.Search(cmd.Context(), query, searchFlags.options())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchFlags.json {
		return outputJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.DocumentTitle, r.Similarity)
		cmd.Printf("      %s, document %d, chunk %d\n", r.DocumentType, r.DocumentID, r.ChunkIndex)
		cmd.Printf("      %s\n", truncate(r.Content, 160))
		cmd.Println()
	}
	return nil
}
