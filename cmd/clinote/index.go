package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/clinote/internal/application/handlers"
	"github.com/ersonp/clinote/internal/domain/entities"
)

type indexFlags struct {
	format string
	dryRun bool
	system string
}

func newIndexCmd() *cobra.Command {
	var flags indexFlags

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Load a concept table into the semantic index",
		Long: "Embeds the concepts of a JSON or CSV table and stores them in Qdrant. " +
			"The index serves SNOMED CT search when terminology.snomed.source is \"index\".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "Input format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate and embed without saving")
	cmd.Flags().StringVar(&flags.system, "system", entities.SystemSNOMED, "System URI for rows without one")

	return cmd
}

func runIndex(cmd *cobra.Command, filePath string, flags indexFlags) error {
	ctx := cmd.Context()

	return withIndexHandler(ctx, func(h *handlers.IndexHandler) error {
		result, err := h.Handle(ctx, filePath, handlers.IndexOptions{
			Format:        flags.format,
			DryRun:        flags.dryRun,
			DefaultSystem: flags.system,
		})
		if err != nil {
			return err
		}

		for _, e := range result.Errors {
			fmt.Printf("skipped: %s\n", e.Error())
		}

		verb := "Indexed"
		if flags.dryRun {
			verb = "Validated"
		}
		fmt.Printf("%s %d concepts from %s (%d skipped)\n", verb, result.Imported, filePath, len(result.Errors))
		return nil
	})
}
