package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/bookingest/internal/finalize"
)

func outlineCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "outline <final.json>",
		Short: "Print the chapter and subsection tree of a final artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := finalize.Load(args[0])
			if err != nil {
				return err
			}
			chapters := finalize.Outline(sections)
			if asJSON {
				b, err := json.MarshalIndent(chapters, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			var title string
			if len(sections) > 0 {
				title = sections[0].BookTitle
			}
			fmt.Fprint(cmd.OutOrStdout(), finalize.RenderOutline(title, chapters))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outline as JSON")
	return cmd
}
