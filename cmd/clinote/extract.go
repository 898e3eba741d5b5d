package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type extractFlags struct {
	text          string
	mode          string
	allowFallback bool
}

func newExtractCmd() *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract clinical entities from a note",
		Long:  "Recognizes symptoms, diseases, medications, procedures and anatomy without terminology mapping.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.text, "text", "t", "", "Note text (default: file argument or stdin)")
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "patterns", "Recognition mode (patterns, model)")
	cmd.Flags().BoolVar(&flags.allowFallback, "allow-fallback", false, "Fall back to patterns when the model is unavailable")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string, flags extractFlags) error {
	mode, err := parseMode(flags.mode)
	if err != nil {
		return err
	}

	text, err := readNote(args, flags.text, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withDeps(ctx, depsOptions{allowFallback: flags.allowFallback}, func(deps *Deps) error {
		result, err := deps.ExtractHandler.Handle(ctx, text, mode)
		if err != nil {
			return err
		}

		rec := result.Recognition
		if rec.IsFallback() {
			fmt.Fprintf(os.Stderr, "warning: model unavailable, used patterns: %s\n", rec.FallbackReason)
		}

		fmt.Printf("Mode: %s\n\n", rec.Mode)
		printEntities(os.Stdout, rec.Entities)
		printSummary(os.Stdout, result.Summary)
		return nil
	})
}
