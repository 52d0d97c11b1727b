package config

// Config represents the complete bazel-compdb configuration.
// It can be loaded from .compdb/config.yml with environment variable overrides.
type Config struct {
	Targets []TargetSpec  `yaml:"targets" mapstructure:"targets"`
	Headers HeadersConfig `yaml:"headers" mapstructure:"headers"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Exclude []string      `yaml:"exclude,omitempty" mapstructure:"exclude"`
	Bazel   BazelConfig   `yaml:"bazel" mapstructure:"bazel"`
	Windows WindowsConfig `yaml:"windows,omitempty" mapstructure:"windows"`
}

// TargetSpec names one Bazel target pattern whose compile actions should be
// covered, with optional extra build flags and an optional named group.
// Targets sharing a group are written to one compile_commands.<group>.json;
// ungrouped targets land in the default compile_commands.json.
type TargetSpec struct {
	Target string `yaml:"target" mapstructure:"target"`
	Flags  string `yaml:"flags,omitempty" mapstructure:"flags"` // extra build flags, shell-quoted string
	Group  string `yaml:"group,omitempty" mapstructure:"group"` // optional named output group
}

// HeadersConfig controls header association.
type HeadersConfig struct {
	// Exclude is one of "none", "external", "all".
	// "external" drops headers outside the main workspace; "all" drops every
	// header-derived entry.
	Exclude string `yaml:"exclude" mapstructure:"exclude"`
	// Strategy is one of "depfile" (consume Bazel's declared-include depfiles,
	// no compilation) or "scan" (re-invoke the compiler in dependency-listing
	// mode per command).
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
}

// OutputConfig controls where database files are written.
type OutputConfig struct {
	// Directory receiving compile_commands.json. Relative paths are resolved
	// against the workspace root. Empty means the workspace root itself.
	Directory string `yaml:"directory" mapstructure:"directory"`
	// ExcludeExternalSources drops entries for sources fetched from external
	// repositories before they are even queried.
	ExcludeExternalSources bool `yaml:"exclude_external_sources" mapstructure:"exclude_external_sources"`
}

// BazelConfig controls how the orchestrator is invoked.
type BazelConfig struct {
	Path               string `yaml:"path" mapstructure:"path"`                                 // bazel binary, default "bazel"
	MaxParallelQueries int    `yaml:"max_parallel_queries" mapstructure:"max_parallel_queries"` // concurrent aquery invocations
	QueryTimeoutSec    int    `yaml:"query_timeout_sec" mapstructure:"query_timeout_sec"`       // per-aquery budget
	ScanTimeoutSec     int    `yaml:"scan_timeout_sec" mapstructure:"scan_timeout_sec"`         // per-file header scan budget
}

// WindowsConfig carries toolchain facts Bazel fails to put in its action
// output. The include paths mirror what vcvars would set in INCLUDE.
// See https://github.com/bazelbuild/bazel/issues/12852 for why Bazel's aquery
// output doesn't already have them.
type WindowsConfig struct {
	DefaultIncludePaths []string `yaml:"default_include_paths,omitempty" mapstructure:"default_include_paths"`
}

// Header exclusion modes.
const (
	ExcludeHeadersNone     = "none"
	ExcludeHeadersExternal = "external"
	ExcludeHeadersAll      = "all"
)

// Header association strategies.
const (
	StrategyDepfile = "depfile"
	StrategyScan    = "scan"
)

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Targets: []TargetSpec{
			{Target: "//..."},
		},
		Headers: HeadersConfig{
			Exclude:  ExcludeHeadersNone,
			Strategy: StrategyDepfile,
		},
		Bazel: BazelConfig{
			Path:               "bazel",
			MaxParallelQueries: 2,
			QueryTimeoutSec:    600,
			ScanTimeoutSec:     60,
		},
	}
}
