package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved annotation",
		Long:  "Deletes an annotation with its entities and mappings. The audit log is kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			ctx := cmd.Context()

			return withDeps(ctx, depsOptions{}, func(deps *Deps) error {
				if !force {
					shown, err := deps.AnnotationHandler.Show(ctx, id)
					if err != nil {
						return err
					}
					prompt := fmt.Sprintf("Delete annotation %q (%d entities)?", shown.Annotation.Title, len(shown.Annotation.Entities))
					if !confirmAction(cmd.InOrStdin(), prompt) {
						fmt.Println("Cancelled.")
						return nil
					}
				}

				if err := deps.AnnotationHandler.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Deleted annotation %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// confirmAction asks a yes/no question on stdout and reads the answer from in.
func confirmAction(in io.Reader, prompt string) bool {
	reader := bufio.NewReader(in)
	fmt.Printf("%s [y/N]: ", prompt)
	response, _ := reader.ReadString('\n') // EOF or error counts as "no"
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
