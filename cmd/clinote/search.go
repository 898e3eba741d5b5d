package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/clinote/internal/domain/entities"
)

func newSearchCmd() *cobra.Command {
	var (
		terminology string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search a terminology for a term",
		Long:  "Shows the scored candidates SNOMED CT or the HL7 coding table return for a term.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return withDeps(ctx, depsOptions{}, func(deps *Deps) error {
				if limit <= 0 {
					limit = deps.Config.Mapping.MaxResults
				}

				result, err := deps.SearchHandler.Handle(ctx, entities.Terminology(terminology), args[0], limit)
				if err != nil {
					return err
				}

				if len(result.Candidates) == 0 {
					fmt.Printf("No %s concepts found for %q.\n", result.Terminology, result.Term)
					return nil
				}

				fmt.Printf("%s candidates for %q:\n\n", result.Terminology, result.Term)
				for i, c := range result.Candidates {
					fmt.Printf("%3d. %.3f  %s  %s\n", i+1, c.Score, c.Concept.Code, c.Concept.Display)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&terminology, "terminology", "T", string(entities.TerminologySNOMED), "Terminology to search (snomed, hl7)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum number of candidates (default from config)")

	return cmd
}
