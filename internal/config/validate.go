package config

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid configuration. It is detected before any
// external call is made, so a bad filter/group combination fails fast.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration for invalid or contradictory settings.
func Validate(cfg *Config) error {
	switch cfg.Headers.Exclude {
	case ExcludeHeadersNone, ExcludeHeadersExternal, ExcludeHeadersAll:
	default:
		return &ConfigError{
			Field:  "headers.exclude",
			Reason: fmt.Sprintf("must be %q, %q or %q, got %q", ExcludeHeadersNone, ExcludeHeadersExternal, ExcludeHeadersAll, cfg.Headers.Exclude),
		}
	}

	switch cfg.Headers.Strategy {
	case StrategyDepfile, StrategyScan:
	default:
		return &ConfigError{
			Field:  "headers.strategy",
			Reason: fmt.Sprintf("must be %q or %q, got %q", StrategyDepfile, StrategyScan, cfg.Headers.Strategy),
		}
	}

	// Excluding external sources makes "exclude external headers" redundant:
	// there are no external actions left to produce them. Allowed, but the
	// combination of excluding external sources while explicitly *keeping*
	// all headers of external actions can't be satisfied, so there is nothing
	// to reject there. Group names, however, become file name components.
	seen := make(map[string]struct{}, len(cfg.Targets))
	for i, t := range cfg.Targets {
		if strings.TrimSpace(t.Target) == "" {
			return &ConfigError{
				Field:  fmt.Sprintf("targets[%d].target", i),
				Reason: "must not be empty",
			}
		}
		if t.Group != "" {
			if strings.ContainsAny(t.Group, "/\\ ") {
				return &ConfigError{
					Field:  fmt.Sprintf("targets[%d].group", i),
					Reason: fmt.Sprintf("group name %q must not contain path separators or spaces", t.Group),
				}
			}
		}
		key := t.Target + "\x00" + t.Flags
		if _, dup := seen[key]; dup {
			return &ConfigError{
				Field:  fmt.Sprintf("targets[%d]", i),
				Reason: fmt.Sprintf("duplicate target %q with identical flags", t.Target),
			}
		}
		seen[key] = struct{}{}
	}

	if cfg.Bazel.MaxParallelQueries < 1 {
		return &ConfigError{
			Field:  "bazel.max_parallel_queries",
			Reason: "must be at least 1",
		}
	}
	if cfg.Bazel.QueryTimeoutSec < 1 {
		return &ConfigError{
			Field:  "bazel.query_timeout_sec",
			Reason: "must be at least 1",
		}
	}
	if cfg.Bazel.ScanTimeoutSec < 1 {
		return &ConfigError{
			Field:  "bazel.scan_timeout_sec",
			Reason: "must be at least 1",
		}
	}

	return nil
}
