package compiledb

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/bazel-compdb/internal/config"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Filter decides which assembled records survive into the database.
type Filter struct {
	workspaceRoot   string
	excludeHeaders  string
	excludeExternal bool
	excludePatterns []compiledPattern
}

// NewFilter builds a Filter from configuration. Exclude patterns match
// workspace-relative file paths with '/' separators.
func NewFilter(workspaceRoot string, cfg *config.Config) (*Filter, error) {
	f := &Filter{
		workspaceRoot:   workspaceRoot,
		excludeHeaders:  cfg.Headers.Exclude,
		excludeExternal: cfg.Output.ExcludeExternalSources,
	}
	for _, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile exclude pattern %q: %w", pattern, err)
		}
		f.excludePatterns = append(f.excludePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	return f, nil
}

// KeepSource reports whether a source-file record should be emitted.
func (f *Filter) KeepSource(path string, external bool) bool {
	if f.excludeExternal && external {
		return false
	}
	return !f.matchesExclude(path)
}

// KeepHeader reports whether a header record should be emitted, given the
// external-ness of the command it was associated with.
func (f *Filter) KeepHeader(path string, commandExternal bool) bool {
	switch f.excludeHeaders {
	case config.ExcludeHeadersAll:
		return false
	case config.ExcludeHeadersExternal:
		if !f.FirstParty(path) {
			return false
		}
	}
	if f.excludeExternal && commandExternal {
		return false
	}
	return !f.matchesExclude(path)
}

// FirstParty reports whether a file is owned by the main workspace rather
// than an externally fetched dependency.
func (f *Filter) FirstParty(path string) bool {
	rel := filepath.ToSlash(path)
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(f.workspaceRoot, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = filepath.ToSlash(r)
	}
	// Workspace-relative now. external/some/file.h is fetched code, and so
	// is generated output under bazel-out/<config>/bin/external/.
	if rel == "external" || strings.HasPrefix(rel, "external/") {
		return false
	}
	parts := strings.Split(rel, "/")
	if len(parts) > 3 && parts[0] == "bazel-out" && parts[3] == "external" {
		return false
	}
	return true
}

func (f *Filter) matchesExclude(path string) bool {
	rel := filepath.ToSlash(path)
	for _, p := range f.excludePatterns {
		if p.glob.Match(rel) {
			return true
		}
	}
	return false
}
