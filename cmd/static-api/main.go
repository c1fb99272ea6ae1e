// Command static-api serves a mock REST API whose collections are JSON files.
// Usage: static-api serve [--host 127.0.0.1] [--port 5800] [--data-dir ~/.static-api]
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
