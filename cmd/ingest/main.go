// Command ingest loads reference documents into the passage store and manages their embeddings.
//
// Usage:
//
//	ingest passages --dir ./docs      store passages and enqueue embedding jobs (workers in the API embed them)
//	ingest backfill                   enqueue jobs for stored passages without an embedding
//	ingest index --dir ./docs --out vector_index/index.json
//	                                  embed passages directly into a file for INDEX_BACKEND=memory
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/formbricks/evalhub/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ingest",
		Short:        "Load reference documents for answer evaluation",
		SilenceUsage: true,
	}

	root.AddCommand(
		buildPassagesCmd(),
		buildBackfillCmd(),
		buildIndexCmd(),
	)

	return root
}

func buildPassagesCmd() *cobra.Command {
	var (
		dir      string
		maxChars int
	)

	cmd := &cobra.Command{
		Use:   "passages",
		Short: "Chunk documents, store passages and enqueue embedding jobs",
		Long: `Chunk every .pdf, .txt and .md document in --dir, upsert the passages by chunk id and enqueue
one embedding job per passage. PDFs are read page by page; text files use form feeds as page breaks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPassages(cmd.Context(), cmd, dir, maxChars)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "docs", "Directory with reference documents")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Passage window size in characters (0 uses the default)")

	return cmd
}

func buildBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Enqueue embedding jobs for stored passages without an embedding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackfill(cmd.Context(), cmd)
		},
	}
}

func buildIndexCmd() *cobra.Command {
	var (
		dir      string
		out      string
		maxChars int
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed documents into a file-backed index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, dir, out, maxChars)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "docs", "Directory with reference documents")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default MEMORY_INDEX_PATH)")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Passage window size in characters (0 uses the default)")

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return cfg, nil
}
