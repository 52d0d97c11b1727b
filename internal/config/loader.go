package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	workspaceDir string
	configFile   string
}

// NewLoader creates a new configuration loader for the given workspace root.
func NewLoader(workspaceDir string) Loader {
	return &loader{
		workspaceDir: workspaceDir,
	}
}

// NewFileLoader creates a loader reading an explicit config file instead of
// searching the workspace. The file must exist.
func NewFileLoader(path string) Loader {
	return &loader{
		configFile: path,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (COMPDB_*)
// 2. Config file (.compdb/config.yml or .compdb/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		configDir := filepath.Join(l.workspaceDir, ".compdb")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	// Enable environment variable overrides, e.g. COMPDB_HEADERS_EXCLUDE.
	v.SetEnvPrefix("COMPDB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("headers.exclude")
	v.BindEnv("headers.strategy")
	v.BindEnv("output.directory")
	v.BindEnv("output.exclude_external_sources")
	v.BindEnv("bazel.path")
	v.BindEnv("bazel.max_parallel_queries")
	v.BindEnv("bazel.query_timeout_sec")
	v.BindEnv("bazel.scan_timeout_sec")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file during workspace search is acceptable - we'll
		// use defaults + env vars. An explicitly named file must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("headers.exclude", defaults.Headers.Exclude)
	v.SetDefault("headers.strategy", defaults.Headers.Strategy)
	v.SetDefault("output.directory", defaults.Output.Directory)
	v.SetDefault("output.exclude_external_sources", defaults.Output.ExcludeExternalSources)
	v.SetDefault("bazel.path", defaults.Bazel.Path)
	v.SetDefault("bazel.max_parallel_queries", defaults.Bazel.MaxParallelQueries)
	v.SetDefault("bazel.query_timeout_sec", defaults.Bazel.QueryTimeoutSec)
	v.SetDefault("bazel.scan_timeout_sec", defaults.Bazel.ScanTimeoutSec)
}

// LoadFromDir is a convenience wrapper combining NewLoader and Load.
// Targets default to //... when the config file names none.
func LoadFromDir(workspaceDir string) (*Config, error) {
	cfg, err := NewLoader(workspaceDir).Load()
	if err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = Default().Targets
	}
	return cfg, nil
}
