package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrorPolicy decides what a batch run does when a method fails.
type ErrorPolicy string

const (
	// OnErrorSkip records the failure and keeps going.
	OnErrorSkip ErrorPolicy = "skip"
	// OnErrorAbort cancels the remaining units.
	OnErrorAbort ErrorPolicy = "abort"
)

// CompatConfig holds switches that reproduce legacy edge shapes.
type CompatConfig struct {
	// DoWhileSelfLoop adds a LOOP_FALSE self edge on the do-while statement.
	DoWhileSelfLoop bool `yaml:"dowhile_self_loop"`

	// ForConditionSelfLoop keeps the FOR_CONDITION self edge of a for
	// statement without init or condition.
	ForConditionSelfLoop bool `yaml:"for_condition_self_loop"`
}

// Config holds all configuration for go-flow-graph
type Config struct {
	// Directory name holding unit files
	GIRDir string `yaml:"gir_dir" env:"GFG_GIR_DIR"`

	// Directory name replacing GIRDir in output paths
	SemanticDir string `yaml:"semantic_dir" env:"GFG_SEMANTIC_DIR"`

	// Extension of edge files
	CFGExt string `yaml:"cfg_ext" env:"GFG_CFG_EXT"`

	// Number of units analyzed concurrently
	Workers int `yaml:"workers" env:"GFG_WORKERS"`

	// Nesting limit for a single method
	MaxDepth int `yaml:"max_depth" env:"GFG_MAX_DEPTH"`

	OnError ErrorPolicy `yaml:"on_error" env:"GFG_ON_ERROR"`

	// Badger directory for the unit to edge file registry. Empty disables it.
	RegistryPath string `yaml:"registry_path" env:"GFG_REGISTRY_PATH"`

	// Prometheus textfile written after a batch. Empty disables it.
	MetricsFile string `yaml:"metrics_file" env:"GFG_METRICS_FILE"`

	// Build state file used to skip unchanged units. Empty rebuilds everything.
	StateFile string `yaml:"state_file" env:"GFG_STATE_FILE"`

	Compat CompatConfig `yaml:"compat"`

	// Logging
	Verbose bool `yaml:"verbose" env:"GFG_VERBOSE"`
	JSONLog bool `yaml:"json_log" env:"GFG_JSON_LOG"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GIRDir:       ".gir",
		SemanticDir:  ".semantic",
		CFGExt:       ".cfg",
		Workers:      4,
		MaxDepth:     256,
		OnError:      OnErrorSkip,
		RegistryPath: "",
		MetricsFile:  "",
		StateFile:    "",
		Verbose:      false,
		JSONLog:      false,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.gfg/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ProjectConfigFilePath()
	}
	return filepath.Join(home, ".gfg", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.gfg/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".gfg", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gfg/config.yaml)
// 3. Global config (~/.gfg/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GFG_GIR_DIR"); v != "" {
		cfg.GIRDir = v
	}
	if v := os.Getenv("GFG_SEMANTIC_DIR"); v != "" {
		cfg.SemanticDir = v
	}
	if v := os.Getenv("GFG_CFG_EXT"); v != "" {
		cfg.CFGExt = v
	}
	if v := os.Getenv("GFG_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("GFG_MAX_DEPTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxDepth = i
		}
	}
	if v := os.Getenv("GFG_ON_ERROR"); v != "" {
		cfg.OnError = ErrorPolicy(strings.ToLower(v))
	}
	if v := os.Getenv("GFG_REGISTRY_PATH"); v != "" {
		cfg.RegistryPath = v
	}
	if v := os.Getenv("GFG_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
	}
	if v := os.Getenv("GFG_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("GFG_COMPAT_DOWHILE_SELF_LOOP"); v != "" {
		cfg.Compat.DoWhileSelfLoop = parseBool(v)
	}
	if v := os.Getenv("GFG_COMPAT_FOR_CONDITION_SELF_LOOP"); v != "" {
		cfg.Compat.ForConditionSelfLoop = parseBool(v)
	}
	if v := os.Getenv("GFG_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("GFG_JSON_LOG"); v != "" {
		cfg.JSONLog = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.GIRDir == "" {
		return fmt.Errorf("gir_dir must not be empty")
	}
	if c.SemanticDir == "" {
		return fmt.Errorf("semantic_dir must not be empty")
	}
	if c.GIRDir == c.SemanticDir {
		return fmt.Errorf("semantic_dir must differ from gir_dir")
	}
	if strings.ContainsAny(c.GIRDir, `/\`) || strings.ContainsAny(c.SemanticDir, `/\`) {
		return fmt.Errorf("gir_dir and semantic_dir must be single path segments")
	}
	if c.CFGExt != "" && !strings.HasPrefix(c.CFGExt, ".") {
		return fmt.Errorf("cfg_ext must start with '.'")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive")
	}

	switch c.OnError {
	case OnErrorSkip, OnErrorAbort:
	default:
		return fmt.Errorf("invalid on_error: %s (must be 'skip' or 'abort')", c.OnError)
	}

	return nil
}

// parseBool accepts the usual truthy spellings
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
