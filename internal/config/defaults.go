package config

import "time"

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Manifest: "manifest.json",
		Paths: PathsCfg{
			SourceDir: "books",
			WorkDir:   "work",
			OutputDir: "output",
			CoverDir:  "output/covers",
			ImagesDir: "output/images",
		},
		AI: AICfg{
			Provider: "gemini",
		},
		Agent: AgentCfg{
			MaxTurns:      50,
			MaxRetries:    3,
			BaseBackoff:   5 * time.Second,
			RateLimitWait: 65 * time.Second,
		},
		Layout: LayoutCfg{
			LineTolerance: 5,
			ParagraphGap:  10,
			MinImageSize:  50,
		},
		Tools: ToolsCfg{
			PDFToPPM:    "pdftoppm",
			PDFImages:   "pdfimages",
			CoverDPI:    150,
			ImageFormat: "png",
		},
		Output: OutputCfg{
			ImageURLPrefix: "/images",
		},
	}
}

// defaultKeys flattens DefaultConfig into viper keys. Every leaf is listed so
// AutomaticEnv can override it.
func defaultKeys() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"manifest":                d.Manifest,
		"paths.source_dir":        d.Paths.SourceDir,
		"paths.work_dir":          d.Paths.WorkDir,
		"paths.output_dir":        d.Paths.OutputDir,
		"paths.cover_dir":         d.Paths.CoverDir,
		"paths.images_dir":        d.Paths.ImagesDir,
		"ai.provider":             d.AI.Provider,
		"ai.model":                d.AI.Model,
		"ai.api_key":              d.AI.APIKey,
		"ai.base_url":             d.AI.BaseURL,
		"agent.max_turns":         d.Agent.MaxTurns,
		"agent.max_retries":       d.Agent.MaxRetries,
		"agent.base_backoff":      d.Agent.BaseBackoff,
		"agent.rate_limit_wait":   d.Agent.RateLimitWait,
		"layout.line_tolerance":   d.Layout.LineTolerance,
		"layout.paragraph_gap":    d.Layout.ParagraphGap,
		"layout.min_image_size":   d.Layout.MinImageSize,
		"tools.pdftoppm":          d.Tools.PDFToPPM,
		"tools.pdfimages":         d.Tools.PDFImages,
		"tools.cover_dpi":         d.Tools.CoverDPI,
		"tools.image_format":      d.Tools.ImageFormat,
		"output.image_url_prefix": d.Output.ImageURLPrefix,
	}
}
