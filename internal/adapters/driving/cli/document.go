package cli

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
)

var (
	documentListType   string
	documentListLimit  int
	documentListOffset int
	documentJSON       bool
	documentChunks     bool
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage reference documents",
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document with its chunks and query references",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentListCmd.Flags().StringVar(&documentListType, "type", "", "only list documents of this type")
	documentListCmd.Flags().IntVar(&documentListLimit, "limit", domain.DefaultListLimit, "maximum number of documents")
	documentListCmd.Flags().IntVar(&documentListOffset, "offset", 0, "number of documents to skip")
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")
	documentGetCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")
	documentGetCmd.Flags().BoolVar(&documentChunks, "chunks", false, "show the stored chunks instead of the content")

	documentCmd.AddCommand(documentListCmd, documentGetCmd, documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentListLimit < 0 || documentListOffset < 0 {
		return errors.New("limit and offset must be non-negative")
	}

	svc, err := requireRAG()
	if err != nil {
		return err
	}

	docs, err := svc.ListDocuments(cmd.Context(), domain.DocumentFilter{
		DocumentType: documentListType,
		Limit:        documentListLimit,
		Offset:       documentListOffset,
	})
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentJSON {
		return outputJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	for _, d := range docs {
		cmd.Printf("  %-6d %-40s %-18s %s\n", d.ID, truncate(d.Title, 40), d.DocumentType, d.State)
	}
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	svc, err := requireRAG()
	if err != nil {
		return err
	}

	doc, err := svc.GetDocument(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("getting document: %w", err)
	}

	if documentChunks {
		return outputChunks(cmd, svc, doc)
	}
	if documentJSON {
		return outputJSON(cmd, doc)
	}
	cmd.Printf("ID:      %d\n", doc.ID)
	cmd.Printf("Title:   %s\n", doc.Title)
	cmd.Printf("Type:    %s\n", doc.DocumentType)
	if doc.Source != "" {
		cmd.Printf("Source:  %s\n", doc.Source)
	}
	cmd.Printf("State:   %s\n", doc.State)
	cmd.Printf("Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Println()
	cmd.Println(doc.Content)
	return nil
}

func outputChunks(cmd *cobra.Command, svc driving.RAGService, doc *domain.Document) error {
	chunks, err := svc.GetChunks(cmd.Context(), doc.ID)
	if err != nil {
		return fmt.Errorf("getting chunks: %w", err)
	}
	if documentJSON {
		return outputJSON(cmd, chunks)
	}

	cmd.Printf("%s: %d chunks\n", doc.Title, len(chunks))
	for _, c := range chunks {
		status := "embedded"
		switch {
		case c.EmbeddingUnavailable:
			status = "no embedding"
		case !c.HasEmbedding():
			status = "pending"
		}
		cmd.Println()
		cmd.Printf("  [%d] %d characters, %s\n", c.Index, utf8.RuneCountInString(c.Content), status)
		cmd.Printf("      %s\n", truncate(c.Content, 160))
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	svc, err := requireRAG()
	if err != nil {
		return err
	}

	if err := svc.DeleteDocument(cmd.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Deleted document %d\n", id)
	return nil
}

func parseDocumentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}
