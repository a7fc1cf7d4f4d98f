package config

import "time"

// Config is the full pipeline configuration.
type Config struct {
	Manifest string    `mapstructure:"manifest" yaml:"manifest"`
	Paths    PathsCfg  `mapstructure:"paths" yaml:"paths"`
	AI       AICfg     `mapstructure:"ai" yaml:"ai"`
	Agent    AgentCfg  `mapstructure:"agent" yaml:"agent"`
	Layout   LayoutCfg `mapstructure:"layout" yaml:"layout"`
	Tools    ToolsCfg  `mapstructure:"tools" yaml:"tools"`
	Output   OutputCfg `mapstructure:"output" yaml:"output"`
}

// PathsCfg holds the directories artifacts are read from and written to.
type PathsCfg struct {
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir"`
	WorkDir   string `mapstructure:"work_dir" yaml:"work_dir"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	CoverDir  string `mapstructure:"cover_dir" yaml:"cover_dir"`
	ImagesDir string `mapstructure:"images_dir" yaml:"images_dir"`
}

// AICfg selects the chat service.
type AICfg struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // "gemini", "openai"
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR}
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

// AgentCfg bounds the structuring conversation.
type AgentCfg struct {
	MaxTurns      int           `mapstructure:"max_turns" yaml:"max_turns"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseBackoff   time.Duration `mapstructure:"base_backoff" yaml:"base_backoff"`
	RateLimitWait time.Duration `mapstructure:"rate_limit_wait" yaml:"rate_limit_wait"`
}

// LayoutCfg tunes page analysis and reading-order reconstruction, in page units.
type LayoutCfg struct {
	LineTolerance float64 `mapstructure:"line_tolerance" yaml:"line_tolerance"`
	ParagraphGap  float64 `mapstructure:"paragraph_gap" yaml:"paragraph_gap"`
	MinImageSize  float64 `mapstructure:"min_image_size" yaml:"min_image_size"`
}

// ToolsCfg names the external raster utilities.
type ToolsCfg struct {
	PDFToPPM    string `mapstructure:"pdftoppm" yaml:"pdftoppm"`
	PDFImages   string `mapstructure:"pdfimages" yaml:"pdfimages"`
	CoverDPI    int    `mapstructure:"cover_dpi" yaml:"cover_dpi"`
	ImageFormat string `mapstructure:"image_format" yaml:"image_format"` // png or tiff
}

// OutputCfg shapes the final artifact.
type OutputCfg struct {
	ImageURLPrefix string `mapstructure:"image_url_prefix" yaml:"image_url_prefix"`
}
