// Package headers maps every header transitively reachable from compiled
// sources to one representative canonical command.
package headers

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/bazel-compdb/internal/shellwords"
)

// ParseDepfile extracts the dependency list from a Makefile-format `*.d`
// file as generated by clang or gcc with the -M family of flags.
//
// The file contains exactly one `target: dependencies` rule, where long
// dependency lists carry over with a backslash and newline. The first
// dependency is the source file itself; when sourceForCheck is non-empty it
// is verified against that entry. The returned headers preserve the
// compiler's order with duplicates removed (gcc sometimes emits them).
func ParseDepfile(content string, sourceForCheck string) ([]string, error) {
	colon := strings.Index(content, ":")
	if colon < 0 {
		return nil, fmt.Errorf("no rule separator in dependency output: %q", truncate(content))
	}

	target := strings.TrimSpace(content[:colon])
	if !strings.HasSuffix(target, ".o") && !strings.HasSuffix(target, ".obj") && !strings.HasSuffix(target, ".pic.o") {
		return nil, fmt.Errorf("dependency rule target %q is not an object file", target)
	}

	// Undo shell-style line wrapping. The wrapping is inconsistently
	// generated across compilers (it depends on filename lengths), so the
	// continuations are simply erased rather than split on.
	deps := strings.ReplaceAll(content[colon+1:], "\\\n", " ")
	deps = strings.ReplaceAll(deps, "\\\r\n", " ")

	words, err := shellwords.Split(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to split dependency list: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("dependency rule for %q lists no files", target)
	}

	source, rest := words[0], words[1:]
	if sourceForCheck != "" && !strings.HasSuffix(source, sourceForCheck) {
		return nil, fmt.Errorf("first dependency %q does not match compiled source %q", source, sourceForCheck)
	}

	seen := make(map[string]bool, len(rest))
	headers := make([]string, 0, len(rest))
	for _, h := range rest {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		headers = append(headers, h)
	}
	return headers, nil
}

func truncate(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
