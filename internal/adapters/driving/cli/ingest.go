package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/connectors/filesystem"
	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
	"github.com/apeko/appraisal-rag/internal/logger"
)

var (
	ingestTitle        string
	ingestType         string
	ingestSource       string
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestJSON         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|dir]",
	Short: "Add a reference document",
	Long: `Extracts the text of a document, splits it into overlapping chunks and
embeds each chunk. Plain text, Markdown, HTML, DOCX and PDF files are read by
type. Given a directory, every visible file under it is ingested and files
of unsupported types are skipped. With no file, or "-", UTF-8 text is read
from stdin.

Examples:
  appraisal ingest uspap-2024.txt --type regulation
  appraisal ingest ./past-reports --type report
  cat austin-q3.txt | appraisal ingest --title "Austin Q3" --type market_analysis`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (default from the file)")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "document type, e.g. regulation or market_analysis")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "origin reference (default file path)")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk size in characters (default from settings)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", -1, "chunk overlap in characters (default from settings)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the document as JSON")
	_ = ingestCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	req := domain.IngestRequest{
		Title:        ingestTitle,
		DocumentType: ingestType,
		Source:       ingestSource,
		ChunkSize:    ingestChunkSize,
	}
	if ingestChunkOverlap >= 0 {
		overlap := ingestChunkOverlap
		req.ChunkOverlap = &overlap
	}

	svc, err := requireRAG()
	if err != nil {
		return err
	}

	if len(args) == 1 && args[0] != "-" {
		path := args[0]
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return ingestDir(cmd, svc, path, req)
		}
		doc, err := ingestPath(cmd, svc, path, req)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		return printIngested(cmd, doc)
	}

	content, err := readText(cmd, nil, "document")
	if err != nil {
		return err
	}
	req.Content = content
	doc, err := svc.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printIngested(cmd, doc)
}

func printIngested(cmd *cobra.Command, doc *domain.Document) error {
	if ingestJSON {
		return outputJSON(cmd, doc)
	}
	cmd.Printf("Ingested document %d: %s (%s)\n", doc.ID, doc.Title, doc.DocumentType)
	return nil
}

// ingestPath reads one file and ingests it. The source defaults to the path.
func ingestPath(cmd *cobra.Command, svc driving.RAGService, path string, req domain.IngestRequest) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if req.Source == "" {
		req.Source = path
	}
	return svc.IngestFile(cmd.Context(), domain.RawDocument{
		Filename: filepath.Base(path),
		Content:  data,
	}, req)
}

func ingestDir(cmd *cobra.Command, svc driving.RAGService, dir string, req domain.IngestRequest) error {
	if req.Title != "" || req.Source != "" {
		return errors.New("--title and --source cannot be used with a directory")
	}

	files, err := filesystem.New(dir).Files(cmd.Context())
	if err != nil {
		return err
	}

	var docs []*domain.Document
	skipped := 0
	for _, path := range files {
		doc, err := ingestPath(cmd, svc, path, req)
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Warn("Skipping %s: %v", path, err)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		docs = append(docs, doc)
	}

	if ingestJSON {
		return outputJSON(cmd, docs)
	}
	for _, doc := range docs {
		cmd.Printf("Ingested document %d: %s (%s)\n", doc.ID, doc.Title, doc.DocumentType)
	}
	cmd.Printf("%d ingested, %d skipped\n", len(docs), skipped)
	return nil
}
