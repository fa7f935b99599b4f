// Command appraisal is the retrieval and chunking service for appraisal
// reference documents.
package main

import (
	"fmt"
	"os"

	"github.com/apeko/appraisal-rag/internal/adapters/driving/cli"
)

// Set by goreleaser or -ldflags "-X main.version=...".
var version = ""

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
