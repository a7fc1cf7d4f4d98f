package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/bookingest/internal/ai"
	"github.com/thywilljoshua/bookingest/internal/assets"
	"github.com/thywilljoshua/bookingest/internal/config"
	"github.com/thywilljoshua/bookingest/internal/convert"
	"github.com/thywilljoshua/bookingest/internal/linear"
	"github.com/thywilljoshua/bookingest/internal/manifest"
	"github.com/thywilljoshua/bookingest/internal/scan"
)

// flags shared by run and finalize, mapped to their config keys
var pathFlags = map[string]string{
	"manifest":   "manifest",
	"source-dir": "paths.source_dir",
	"work-dir":   "paths.work_dir",
	"output-dir": "paths.output_dir",
	"images-dir": "paths.images_dir",
	"cover-dir":  "paths.cover_dir",
}

func addPathFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("manifest", "m", "", "manifest of books to ingest (.json, .yaml)")
	cmd.Flags().String("source-dir", "", "directory holding the source PDFs")
	cmd.Flags().String("work-dir", "", "directory for intermediate artifacts and checkpoint logs")
	cmd.Flags().String("output-dir", "", "directory for final JSON artifacts")
	cmd.Flags().String("images-dir", "", "directory for extracted content images")
	cmd.Flags().String("cover-dir", "", "directory for cover images")
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest every book of the manifest",
		Long: `Runs cover and image extraction, content analysis, text reconstruction,
structuring and finalization for each book of the manifest, in order.
Books whose final artifact exists are skipped. A failing book does not stop
the run; the summary lists it and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := map[string]string{
				"provider":  "ai.provider",
				"model":     "ai.model",
				"max-turns": "agent.max_turns",
			}
			for k, v := range pathFlags {
				flags[k] = v
			}
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			log := newLogger()

			entries, err := manifest.Load(cfg.Manifest)
			if err != nil {
				return err
			}
			conf := pipelineConfig(cfg, log)
			if pending := len(convert.Pending(entries, conf)); pending > 0 {
				if conf.Provider, err = newProvider(cmd.Context(), cfg); err != nil {
					return err
				}
			} else {
				log.Info("nothing to structure, chat service not needed")
			}

			report, runErr := convert.Run(cmd.Context(), entries, conf)
			renderReport(cmd.OutOrStdout(), report)
			if runErr != nil {
				if report.Count(convert.StatusFailed) == 0 {
					return runErr
				}
				return fmt.Errorf("%d of %d books failed", report.Count(convert.StatusFailed), len(entries))
			}
			return nil
		},
	}
	addPathFlags(cmd)
	cmd.Flags().String("provider", "", "chat service: gemini|openai")
	cmd.Flags().String("model", "", "chat model name")
	cmd.Flags().Int("max-turns", 0, "maximum conversation turns per book")
	return cmd
}

// pipelineConfig builds the orchestrator configuration without a chat
// provider.
func pipelineConfig(cfg *config.Config, log *slog.Logger) convert.Config {
	return convert.Config{
		SourceDir:      cfg.Paths.SourceDir,
		WorkDir:        cfg.Paths.WorkDir,
		OutputDir:      cfg.Paths.OutputDir,
		CoverDir:       cfg.Paths.CoverDir,
		ImagesDir:      cfg.Paths.ImagesDir,
		ImageURLPrefix: cfg.Output.ImageURLPrefix,
		Layout: linear.Options{
			LineTolerance: cfg.Layout.LineTolerance,
			ParagraphGap:  cfg.Layout.ParagraphGap,
		},
		Assets: &assets.Extractor{
			PDFToPPM:    cfg.Tools.PDFToPPM,
			PDFImages:   cfg.Tools.PDFImages,
			CoverDPI:    cfg.Tools.CoverDPI,
			ImageFormat: cfg.Tools.ImageFormat,
			Logger:      log,
		},
		Scanner: &scan.Analyzer{
			MinImageSize: cfg.Layout.MinImageSize,
			Logger:       log,
		},
		MaxTurns:      cfg.Agent.MaxTurns,
		MaxRetries:    cfg.Agent.MaxRetries,
		BaseBackoff:   cfg.Agent.BaseBackoff,
		RateLimitWait: cfg.Agent.RateLimitWait,
		Logger:        log,
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	key := cfg.ResolveAPIKey()
	if key == "" {
		return nil, errors.New("no chat service API key: set ai.api_key, GEMINI_API_KEY or OPENAI_API_KEY")
	}
	provider, err := ai.New(ctx, ai.Options{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		APIKey:   key,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat provider: %w", err)
	}
	return provider, nil
}
