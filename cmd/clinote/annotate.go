package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/clinote/internal/application/handlers"
	"github.com/ersonp/clinote/internal/domain/services"
	"github.com/ersonp/clinote/internal/infrastructure/exporters"
)

type annotateFlags struct {
	text            string
	mode            string
	allowFallback   bool
	snomedThreshold float64
	hl7Threshold    float64
	format          string
	output          string
	save            bool
	title           string
}

func newAnnotateCmd() *cobra.Command {
	var flags annotateFlags

	cmd := &cobra.Command{
		Use:   "annotate [file]",
		Short: "Extract entities and map them to SNOMED CT and HL7 FHIR",
		Long: "Runs the full pipeline over a note: entity recognition, SNOMED CT mapping, HL7 FHIR coding " +
			"and a coverage summary. Output is a readable listing or an export format.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.text, "text", "t", "", "Note text (default: file argument or stdin)")
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "patterns", "Recognition mode (patterns, model)")
	cmd.Flags().BoolVar(&flags.allowFallback, "allow-fallback", false, "Fall back to patterns when the model is unavailable")
	cmd.Flags().Float64Var(&flags.snomedThreshold, "snomed-threshold", services.DefaultSNOMEDThreshold, "Minimum SNOMED CT similarity (default from config)")
	cmd.Flags().Float64Var(&flags.hl7Threshold, "hl7-threshold", services.DefaultHL7Threshold, "Minimum HL7 similarity (default from config)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Export format (json, csv, xml, markdown)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVarP(&flags.save, "save", "s", false, "Save the annotation to the database")
	cmd.Flags().StringVar(&flags.title, "title", "", "Title of the saved annotation")

	return cmd
}

func runAnnotate(cmd *cobra.Command, args []string, flags annotateFlags) error {
	mode, err := parseMode(flags.mode)
	if err != nil {
		return err
	}

	format := flags.format
	if format == "" && flags.output != "" {
		format = exporters.FormatForFile(flags.output)
	}
	var exp exporters.Exporter
	if format != "" {
		if exp = exporters.ForFormat(format); exp == nil {
			return fmt.Errorf("invalid format %q, valid formats: %v", format, exporters.Formats)
		}
	}

	text, err := readNote(args, flags.text, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withDeps(ctx, depsOptions{allowFallback: flags.allowFallback}, func(deps *Deps) error {
		opts := services.AnnotateOptions{
			Mode:            mode,
			SNOMEDThreshold: deps.Config.Mapping.SNOMEDThreshold,
			HL7Threshold:    deps.Config.Mapping.HL7Threshold,
		}
		if cmd.Flags().Changed("snomed-threshold") {
			opts.SNOMEDThreshold = flags.snomedThreshold
		}
		if cmd.Flags().Changed("hl7-threshold") {
			opts.HL7Threshold = flags.hl7Threshold
		}

		result, err := deps.AnnotateHandler.Handle(ctx, text, handlers.AnnotateRequest{
			Options: opts,
			Save:    flags.save,
			Title:   flags.title,
		})
		if err != nil {
			return err
		}

		reportWarnings(result)

		err = writeOutput(flags.output, func(w io.Writer) error {
			if exp != nil {
				return exp.Export(w, result.Report())
			}
			printAnnotation(w, result.Annotation)
			printSummary(w, result.Result.Summary)
			return nil
		})
		if err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		if flags.output != "" {
			fmt.Printf("Wrote %s annotation to %s\n", format, flags.output)
		}
		if result.Saved {
			fmt.Fprintf(os.Stderr, "Saved annotation %s\n", result.Annotation.ID)
		}
		return nil
	})
}

// reportWarnings prints partial failures that did not stop the run.
func reportWarnings(result *handlers.AnnotateResult) {
	if rec := result.Result.Recognition; rec != nil && rec.IsFallback() {
		fmt.Fprintf(os.Stderr, "warning: model unavailable, used patterns: %s\n", rec.FallbackReason)
	}
	if result.PipelineErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", result.PipelineErr)
	}
	if result.SaveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: annotation not saved: %v\n", result.SaveErr)
	}
}
