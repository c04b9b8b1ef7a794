// Vectorctl manages a vector index and the documents stored in it.
//
// Every run makes sure the configured index exists (cosine, 1536 dimensions
// by default) and then does at most one thing with it.
//
// Usage:
//
//	# Provision the index only
//	vectorctl
//
//	# Ingest a document
//	vectorctl --load ./docs/guide.md
//
//	# Remove every vector, keep the index
//	vectorctl --delete_all true
//
//	# Top 3 chunks for a question
//	vectorctl --query "how are indexes created?"
//
// Configuration is read from the environment (PINECONE_API_KEY, PINECONE_ENV,
// PINECODE_INDEX, OPENAI_API_KEY, ...), a .env file and an optional YAML
// file. See internal/config for the full key list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp(os.Stdout, os.Stderr))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
