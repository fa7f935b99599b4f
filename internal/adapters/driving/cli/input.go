package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readText returns the joined arguments, or the whole of stdin when there are
// none and stdin is not a terminal.
func readText(cmd *cobra.Command, args []string, what string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("%s is required as an argument or on stdin", what)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading %s from stdin: %w", what, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New(what + " is empty")
	}
	return text, nil
}

// readSecret reads a value without echo when stdin is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(cmd *cobra.Command) string {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
