// Package config loads headview.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/strrl/headview/internal/render"
)

const DefaultPath = "headview.yaml"

type Config struct {
	PrettifyTokens bool          `yaml:"prettify_tokens"`
	OutputDir      string        `yaml:"output_dir"`
	ScriptSrc      string        `yaml:"script_src"`
	WriteJSON      bool          `yaml:"write_json"`
	Concurrency    int           `yaml:"concurrency"`
	Logging        LoggingConfig `yaml:"logging"`
	Views          []View        `yaml:"views,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// View is one attention visualization to render in batch mode.
type View struct {
	Name           string `yaml:"name"`
	Attention      string `yaml:"attention"`
	Tokens         string `yaml:"tokens"`
	RightTokens    string `yaml:"right_tokens,omitempty"`
	SentenceBStart *int   `yaml:"sentence_b_start,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		PrettifyTokens: true,
		OutputDir:      ".",
		ScriptSrc:      "head_view.js",
		WriteJSON:      true,
		Concurrency:    4,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Variables from a .env file next to the config, then the process
// environment, override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HEADVIEW_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("HEADVIEW_SCRIPT_SRC"); v != "" {
		c.ScriptSrc = v
	}
	if v := os.Getenv("HEADVIEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HEADVIEW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	// Views sharing a file stem would overwrite each other's output.
	seen := make(map[string]string, len(c.Views))
	for i, v := range c.Views {
		if v.Name == "" {
			return fmt.Errorf("views[%d]: name is required", i)
		}
		base := render.FileBase(v.Name)
		if prev, dup := seen[base]; dup {
			return fmt.Errorf("views[%d]: view name %q collides with %q (both write %s.html)", i, v.Name, prev, base)
		}
		seen[base] = v.Name
		if v.Attention == "" {
			return fmt.Errorf("view %q: attention path is required", v.Name)
		}
		if v.Tokens == "" {
			return fmt.Errorf("view %q: tokens path is required", v.Name)
		}
		if v.SentenceBStart != nil && *v.SentenceBStart < 0 {
			return fmt.Errorf("view %q: sentence_b_start must not be negative", v.Name)
		}
	}
	return nil
}
