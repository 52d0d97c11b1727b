package canonical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for param-file expansion:
// - @file arguments are inlined with the file's contents
// - The multiline format (one argument per line) is supported
// - Shell-quoted lines are split
// - argv[0] and @@ arguments are never treated as param files
// - A missing param file is an error

func TestExpandParamFiles_Multiline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeParamFile(t, dir, "args.params", "-c\npkg/a.cc\n-o\nbazel-out/bin/pkg/a.o\n")

	out, err := expandParamFiles([]string{"gcc", "@args.params"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "-c", "pkg/a.cc", "-o", "bazel-out/bin/pkg/a.o"}, out)
}

func TestExpandParamFiles_QuotedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeParamFile(t, dir, "args.params", "'-DMSG=two words'\n\"-I/inc\"\n")

	out, err := expandParamFiles([]string{"gcc", "@args.params", "tail.cc"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "-DMSG=two words", "-I/inc", "tail.cc"}, out)
}

func TestExpandParamFiles_PassesThroughNonParamArgs(t *testing.T) {
	t.Parallel()

	// @@ is a literal argument, and argv[0] is never expanded.
	out, err := expandParamFiles([]string{"@wrapper", "-c", "@@literal"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"@wrapper", "-c", "@@literal"}, out)
}

func TestExpandParamFiles_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := expandParamFiles([]string{"gcc", "@nope.params"}, t.TempDir())
	require.Error(t, err)
}

func writeParamFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}
