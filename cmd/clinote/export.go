package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/clinote/internal/infrastructure/exporters"
)

type exportFlags struct {
	format string
	output string
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a saved annotation",
		Long:  "Exports a saved annotation to JSON, CSV, XML or markdown.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format (json, csv, xml, markdown; default from --output or json)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, id string, flags exportFlags) error {
	format := flags.format
	if format == "" {
		format = exporters.FormatForFile(flags.output)
	}
	if exporters.ForFormat(format) == nil {
		return fmt.Errorf("invalid format %q, valid formats: %v", format, exporters.Formats)
	}

	ctx := cmd.Context()

	return withDeps(ctx, depsOptions{}, func(deps *Deps) error {
		err := writeOutput(flags.output, func(w io.Writer) error {
			return deps.AnnotationHandler.Export(ctx, id, format, w)
		})
		if err != nil {
			return err
		}

		if flags.output != "" {
			fmt.Printf("Exported annotation %s to %s\n", id, flags.output)
		}
		return nil
	})
}
