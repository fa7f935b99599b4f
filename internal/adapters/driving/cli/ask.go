package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askFlags queryFlags

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the reference documents",
	Long: `Retrieves the chunks most relevant to the question and asks the LLM to
answer from them. The sources are listed whether or not generation succeeds.`,
	RunE: runAsk,
}

func init() {
	askFlags.register(askCmd)
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readText(cmd, args, "question")
	if err != nil {
		return err
	}

	svc, err := requireRAG()
	if err != nil {
		return err
	}

	answer, err := svc.GenerateAnswer(cmd.Context(), question, askFlags.options())
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askFlags.json {
		return outputJSON(cmd, answer)
	}

	cmd.Println(answer.Response)
	if len(answer.Sources) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range answer.Sources {
		cmd.Printf("  [%d] %s (%s, %.3f)\n", i+1, s.DocumentTitle, s.DocumentType, s.Similarity)
	}
	return nil
}
