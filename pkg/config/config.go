// Package config loads cppdecl settings from YAML or TOML files
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

// DefaultFiles are looked up in the working directory when no config path is
// given
var DefaultFiles = []string{".cppdecl.yaml", ".cppdecl.yml", ".cppdecl.toml"}

// Config represents the application configuration
type Config struct {
	Parser  ParserConfig  `yaml:"parser" toml:"parser"`
	Batch   BatchConfig   `yaml:"batch" toml:"batch"`
	Index   IndexConfig   `yaml:"index" toml:"index"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ParserConfig holds the options handed to every parse
type ParserConfig struct {
	Defines            map[string]string `yaml:"defines" toml:"defines"`
	Undefined          []string          `yaml:"undefined" toml:"undefined"`
	StrictConditionals bool              `yaml:"strict_conditionals" toml:"strict_conditionals"`
	MaxTokens          int               `yaml:"max_tokens" toml:"max_tokens" validate:"gte=0"`
}

// BatchConfig controls file discovery and parallel parsing
type BatchConfig struct {
	Workers        int      `yaml:"workers" toml:"workers" validate:"min=1,max=256"`
	Extensions     []string `yaml:"extensions" toml:"extensions" validate:"min=1,dive,startswith=."`
	Exclude        []string `yaml:"exclude" toml:"exclude"`
	IncludeDirs    []string `yaml:"include_dirs" toml:"include_dirs"`
	FollowIncludes bool     `yaml:"follow_includes" toml:"follow_includes"`
	FileTimeout    string   `yaml:"file_timeout" toml:"file_timeout"` // e.g. "30s", empty for none
}

// IndexConfig locates the persisted declaration index
type IndexConfig struct {
	Path  string `yaml:"path" toml:"path" validate:"required"`
	Reset bool   `yaml:"reset" toml:"reset"`
}

// LoggingConfig sets the log level
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error"`
}

// NewDefaultConfig creates a configuration with the built-in defaults
func NewDefaultConfig() *Config {
	return &Config{
		Parser: ParserConfig{
			Defines: map[string]string{},
		},
		Batch: BatchConfig{
			Workers:    4,
			Extensions: []string{".h", ".hh", ".hpp", ".hxx", ".c", ".cc", ".cpp", ".cxx"},
			Exclude:    []string{"build", "vendor", "third_party", ".git", "node_modules"},
		},
		Index: IndexConfig{
			Path: filepath.Join(".cppdecl", "index"),
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads the configuration with priority: defaults, then the file, then
// environment variables. An empty path looks for one of DefaultFiles in the
// working directory and falls back to the defaults when none exists.
func Load(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path == "" {
		path = findDefaultFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := decode(path, data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func findDefaultFile() string {
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// decode picks the decoder by file extension
func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".toml":
		return toml.Unmarshal(data, config)
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if level := os.Getenv("CPPDECL_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if workers := os.Getenv("CPPDECL_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Batch.Workers = n
		}
	}
	if path := os.Getenv("CPPDECL_INDEX_PATH"); path != "" {
		config.Index.Path = path
	}
}

// Validate checks field constraints and the file timeout syntax
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Batch.Timeout(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Timeout parses FileTimeout; zero means no per-file deadline
func (b BatchConfig) Timeout() (time.Duration, error) {
	if b.FileTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(b.FileTimeout)
	if err != nil {
		return 0, fmt.Errorf("file_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("file_timeout must not be negative")
	}
	return d, nil
}

// Write stores the configuration as YAML, the format written by `cppdecl init`
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	header := "# cppdecl configuration file\n# Generated by cppdecl init\n\n"
	return os.WriteFile(path, append([]byte(header), data...), 0644)
}
