package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apeko/appraisal-rag/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a setting",
	Long: `Stores a single setting in the config file. API keys are read from the
terminal without echo when the value is omitted.

Examples:
  appraisal config set llm.model meta-llama/Meta-Llama-3.1-8B-Instruct
  appraisal config set llm.api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys accepted by config set",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range services.SettingKeys() {
			cmd.Println(k)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Println("Server")
	cmd.Printf("  address:      %s\n", s.Server.Address())
	cmd.Println("Storage")
	cmd.Printf("  driver:       %s\n", s.Storage.Driver)
	if s.Storage.Path != "" {
		cmd.Printf("  path:         %s\n", s.Storage.Path)
	}
	if s.Storage.DataDir != "" {
		cmd.Printf("  data_dir:     %s\n", s.Storage.DataDir)
	}
	cmd.Println("Chunking")
	cmd.Printf("  size:         %d\n", s.Chunking.Size)
	cmd.Printf("  overlap:      %d\n", s.Chunking.Overlap)
	cmd.Println("Search")
	cmd.Printf("  top_k:        %d\n", s.Search.TopK)
	cmd.Println("Embedding")
	cmd.Printf("  provider:     %s\n", s.Embedding.Provider)
	cmd.Printf("  model:        %s\n", s.Embedding.Model)
	cmd.Printf("  base_url:     %s\n", s.Embedding.BaseURL)
	cmd.Printf("  api_key:      %s\n", showKey(s.Embedding.APIKey))
	cmd.Printf("  dimensions:   %d\n", s.Embedding.Dimensions)
	cmd.Printf("  cache_size:   %d\n", s.Embedding.CacheSize)
	cmd.Println("LLM")
	cmd.Printf("  provider:     %s\n", s.LLM.Provider)
	cmd.Printf("  model:        %s\n", s.LLM.Model)
	cmd.Printf("  base_url:     %s\n", s.LLM.BaseURL)
	cmd.Printf("  api_key:      %s\n", showKey(s.LLM.APIKey))
	cmd.Printf("  timeout:      %s\n", s.LLM.Timeout)
	cmd.Printf("  max_tokens:   %d\n", s.LLM.MaxTokens)
	cmd.Printf("  temperature:  %.2f\n", s.LLM.Temperature)
	return nil
}

func showKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case strings.HasSuffix(key, ".api_key"):
		cmd.Printf("Enter value for %s: ", key)
		value = readSecret(cmd)
	default:
		return fmt.Errorf("a value is required for %s", key)
	}

	svc, err := requireSettings()
	if err != nil {
		return err
	}
	if err := svc.Set(key, value); err != nil {
		return err
	}

	// Drop the cached copy so later commands see the change.
	appSettings = nil

	if strings.HasSuffix(key, ".api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}
