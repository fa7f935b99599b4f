package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/connectors/filesystem"
	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
	"github.com/apeko/appraisal-rag/internal/logger"
)

var (
	watchType   string
	watchNoSync bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory of documents ingested",
	Long: `Ingests every file under the directory, then watches it. New and changed
files are re-ingested and the previous version is deleted. Removed files
have their document deleted. Runs until interrupted.

Example:
  appraisal watch ./market-reports --type market_analysis`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchType, "type", "", "document type for ingested files")
	watchCmd.Flags().BoolVar(&watchNoSync, "no-sync", false, "skip ingesting existing files")
	_ = watchCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := requireRAG()
	if err != nil {
		return err
	}

	connector := filesystem.New(args[0])
	defer func() {
		if err := connector.Close(); err != nil {
			logger.Warn("Closing watcher: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := newDirSync(cmd, svc, watchType)
	if !watchNoSync {
		files, err := connector.Files(ctx)
		if err != nil {
			return err
		}
		for _, path := range files {
			if err := syncer.apply(ctx, filesystem.Change{Type: filesystem.ChangeCreated, Path: path}); err != nil {
				return err
			}
		}
	}

	changes, err := connector.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", connector.Root())

	for change := range changes {
		if err := syncer.apply(ctx, change); err != nil {
			return err
		}
	}
	return nil
}

// dirSync keeps one document per watched file.
type dirSync struct {
	cmd     *cobra.Command
	svc     driving.RAGService
	docType string
	docs    map[string]int64
}

func newDirSync(cmd *cobra.Command, svc driving.RAGService, docType string) *dirSync {
	return &dirSync{cmd: cmd, svc: svc, docType: docType, docs: make(map[string]int64)}
}

// apply brings the store in line with one file change. Files that cannot be
// read as documents are logged and skipped; store failures are returned.
func (s *dirSync) apply(ctx context.Context, change filesystem.Change) error {
	logger.Debug("File %s: %s", change.Type, change.Path)

	if change.Type == filesystem.ChangeDeleted {
		return s.remove(ctx, change.Path)
	}

	// The old version is kept until the new one is stored.
	doc, err := ingestPath(s.cmd, s.svc, change.Path, domain.IngestRequest{DocumentType: s.docType})
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, os.ErrNotExist) {
		logger.Warn("Skipping %s: %v", change.Path, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingest %s: %w", change.Path, err)
	}
	if err := s.remove(ctx, change.Path); err != nil {
		return err
	}
	s.docs[change.Path] = doc.ID
	s.cmd.Printf("Ingested document %d: %s (%s)\n", doc.ID, doc.Title, doc.DocumentType)
	return nil
}

func (s *dirSync) remove(ctx context.Context, path string) error {
	id, ok := s.docs[path]
	if !ok {
		return nil
	}
	delete(s.docs, path)
	err := s.svc.DeleteDocument(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	s.cmd.Printf("Removed document %d: %s\n", id, path)
	return nil
}
