// Package main provides the entry point for the clinote CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "clinote",
		Short:         "Clinical entity extraction and terminology mapping for Portuguese notes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newExtractCmd(),
		newAnnotateCmd(),
		newSearchCmd(),
		newIndexCmd(),
		newListCmd(),
		newShowCmd(),
		newExportCmd(),
		newDeleteCmd(),
		newWatchCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
