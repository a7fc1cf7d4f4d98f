package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/bookingest/internal/convert"
	"github.com/thywilljoshua/bookingest/internal/manifest"
)

func finalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalize <filename>",
		Short: "Rebuild one book's final artifact from its checkpoint log",
		Long: `Resolves image placeholders and attaches manifest metadata for one book
using only its checkpoint log and image directory. No chat service is
contacted. An existing final artifact is overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, pathFlags)
			if err != nil {
				return err
			}
			entries, err := manifest.Load(cfg.Manifest)
			if err != nil {
				return err
			}
			entry, ok := manifest.Find(entries, args[0])
			if !ok {
				return fmt.Errorf("%s is not in manifest %s", args[0], cfg.Manifest)
			}

			res, err := convert.FinalizeBook(entry, pipelineConfig(cfg, newLogger()))
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), convert.Report{Books: []convert.BookResult{res}})
			return nil
		},
	}
	addPathFlags(cmd)
	return cmd
}
