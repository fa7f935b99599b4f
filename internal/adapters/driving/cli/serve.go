package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/adapters/driving/httpapi"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API",
	Long: `Serves the retrieval API under /api/v1/rag together with /health and
Prometheus metrics on /metrics. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from settings)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	svc, err := requireRAG()
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(svc, httpapi.Options{
		Version: version,
		Metrics: recorder,
	})
	if err != nil {
		return err
	}

	addr := settings.Server
	if serveHost != "" {
		addr.Host = serveHost
	}
	if servePort > 0 {
		addr.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Listening on http://%s\n", addr.Address())
	return server.Run(ctx, addr.Address())
}

