// Package cli implements the appraisal command line on cobra.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Global flags.
var (
	verbose     bool
	configDir   string
	dbPath      string
	useMemoryDB bool
)

var rootCmd = &cobra.Command{
	Use:   "appraisal",
	Short: "Retrieval and question answering over appraisal reference documents",
	Long: `appraisal stores reference documents for real estate appraisal work
(USPAP and other regulations, market analyses, past reports), splits them
into overlapping chunks and embeds each chunk. Queries are answered by
ranking chunks against the question and, when an LLM is configured,
generating an answer grounded in the best matches.

Configuration is read from ~/.appraisal/config.toml and a .env file in the
working directory. NEBIUS_API_KEY, NEBIUS_ENDPOINT, MODEL_NAME, DATABASE_PATH,
HOST and PORT override the file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.appraisal)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides storage.path)")
	rootCmd.PersistentFlags().BoolVar(&useMemoryDB, "memory", false, "keep documents in memory only")
}

// Execute runs the root command and releases services afterwards.
func Execute() error {
	defer shutdown()
	return rootCmd.Execute()
}

// SetVersion sets the version reported by the version command and the API.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
