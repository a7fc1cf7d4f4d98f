// Package config loads pipeline settings from defaults, an optional YAML
// file, BOOKINGEST_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Manager owns the viper instance backing a Config.
type Manager struct {
	v *viper.Viper
}

// NewManager sets up defaults, the environment and the config file. An empty
// cfgFile looks for bookingest.yaml in the working directory; a missing file
// is not an error unless it was named explicitly.
func NewManager(cfgFile string) (*Manager, error) {
	v := viper.New()
	for k, val := range defaultKeys() {
		v.SetDefault(k, val)
	}

	// Environment variables with BOOKINGEST_ prefix, e.g. BOOKINGEST_AI_MODEL
	v.SetEnvPrefix("BOOKINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bookingest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return &Manager{v: v}, nil
}

// BindFlag lets a command-line flag override key when the flag is set.
func (m *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %q", key)
	}
	return m.v.BindPFlag(key, flag)
}

// ConfigFile returns the file that was read, if any.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// Load resolves the current settings into a Config.
func (m *Manager) Load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.AI.Provider) {
	case "", "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider))
	}
	if c.Agent.MaxTurns < 1 {
		errs = append(errs, errors.New("agent.max_turns must be at least 1"))
	}
	// the agent reads 0 as "use the default"
	if c.Agent.MaxRetries < 1 {
		errs = append(errs, errors.New("agent.max_retries must be at least 1"))
	}
	switch c.Tools.ImageFormat {
	case "", "png", "tiff":
	default:
		errs = append(errs, fmt.Errorf("tools.image_format: unsupported format %q (png or tiff)", c.Tools.ImageFormat))
	}
	if c.Paths.WorkDir == "" || c.Paths.OutputDir == "" || c.Paths.ImagesDir == "" {
		errs = append(errs, errors.New("paths.work_dir, paths.output_dir and paths.images_dir are required"))
	}
	return errors.Join(errs...)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ResolveAPIKey returns the chat service credential: ai.api_key with
// ${ENV_VAR} references expanded, else the provider's conventional variable.
func (c *Config) ResolveAPIKey() string {
	if key := strings.TrimSpace(ResolveEnvVars(c.AI.APIKey)); key != "" {
		return key
	}
	var names []string
	switch strings.ToLower(c.AI.Provider) {
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	default:
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, n := range names {
		if key := os.Getenv(n); key != "" {
			return key
		}
	}
	return ""
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# bookingest configuration
# Every key can be overridden with BOOKINGEST_<SECTION>_<KEY>, e.g. BOOKINGEST_AI_MODEL.
# ai.api_key accepts ${ENV_VAR} references. When empty, GEMINI_API_KEY or
# GOOGLE_API_KEY (gemini) or OPENAI_API_KEY (openai) is used.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
