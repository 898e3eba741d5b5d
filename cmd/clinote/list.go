package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved annotations",
		Long:  "Lists saved annotations, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return withDeps(ctx, depsOptions{}, func(deps *Deps) error {
				result, err := deps.AnnotationHandler.List(ctx, limit, offset)
				if err != nil {
					return err
				}

				if len(result.Annotations) == 0 {
					fmt.Println("No annotations found.")
					return nil
				}

				fmt.Printf("Showing %d of %d annotations:\n\n", len(result.Annotations), result.Total)
				for _, a := range result.Annotations {
					fmt.Printf("%s  %s  [%s]  %s\n", a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Mode, a.Title)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultListLimit, "Maximum number of annotations to display")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of annotations to skip")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved annotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return withDeps(ctx, depsOptions{}, func(deps *Deps) error {
				result, err := deps.AnnotationHandler.Show(ctx, args[0])
				if err != nil {
					return err
				}

				printAnnotation(os.Stdout, result.Annotation)
				printSummary(os.Stdout, result.Summary)
				return nil
			})
		},
	}
}
