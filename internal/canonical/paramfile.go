package canonical

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/bazel-compdb/internal/shellwords"
)

// expandParamFiles inlines every @file argument with the shell-split
// contents of the referenced argument list. Consumers invoke the command
// directly, without Bazel's param-file expansion support, so no reference
// to the list file may survive. Relative paths resolve against baseDir.
func expandParamFiles(args []string, baseDir string) ([]string, error) {
	expanded := make([]string, 0, len(args))
	for i, arg := range args {
		// argv[0] named @foo would be an executable, not a param file.
		if i == 0 || !strings.HasPrefix(arg, "@") || strings.HasPrefix(arg, "@@") {
			expanded = append(expanded, arg)
			continue
		}

		path := arg[1:]
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read param file %s: %w", arg[1:], err)
		}

		words, err := splitParamFile(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse param file %s: %w", arg[1:], err)
		}
		expanded = append(expanded, words...)
	}
	return expanded, nil
}

// splitParamFile tolerates both formats Bazel writes: one argument per
// line (the common "multiline" format) and shell-quoted lines.
func splitParamFile(content string) ([]string, error) {
	var words []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		// Shell-quoted lines hold exactly one (possibly quoted) argument in
		// Bazel's writer, so splitting covers both formats.
		split, err := shellwords.Split(line)
		if err != nil {
			return nil, err
		}
		words = append(words, split...)
	}
	return words, nil
}
