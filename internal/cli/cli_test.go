package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/bazel-compdb/internal/canonical"
	"github.com/mvp-joe/bazel-compdb/internal/compiledb"
	"github.com/mvp-joe/bazel-compdb/internal/config"
)

// Test Plan for CLI helpers:
// - isGeneratedDatabase matches default and grouped database names only
// - headerScanCommands skips discovery entirely for "all" and skips
//   external commands for "external", so no scan processes run for
//   records that could never be emitted
// - missingSources reports not-yet-generated sources, sorted
// - headerPrefilter short-circuits "all", delegates "external" to the
//   filter, and passes everything for "none"
// - The command tree registers the expected subcommands

func TestIsGeneratedDatabase(t *testing.T) {
	t.Parallel()

	assert.True(t, isGeneratedDatabase("compile_commands.json"))
	assert.True(t, isGeneratedDatabase("compile_commands.app.json"))

	assert.False(t, isGeneratedDatabase("compile_commands.json.bak"))
	assert.False(t, isGeneratedDatabase("other.json"))
	assert.False(t, isGeneratedDatabase("BUILD"))
}

func TestHeaderScanCommands(t *testing.T) {
	t.Parallel()

	cmds := []*canonical.Command{
		{SourceFile: "pkg/a.cc"},
		{SourceFile: "external/dep/b.cc", External: true},
		{SourceFile: "pkg/c.cc"},
	}

	cfg := config.Default()
	cfg.Headers.Exclude = config.ExcludeHeadersAll
	assert.Empty(t, headerScanCommands(cmds, cfg), "no discovery when every header record is excluded")

	cfg.Headers.Exclude = config.ExcludeHeadersExternal
	kept := headerScanCommands(cmds, cfg)
	require.Len(t, kept, 2, "external commands can't reach first-party headers")
	assert.Equal(t, "pkg/a.cc", kept[0].SourceFile)
	assert.Equal(t, "pkg/c.cc", kept[1].SourceFile)

	cfg.Headers.Exclude = config.ExcludeHeadersNone
	assert.Len(t, headerScanCommands(cmds, cfg), 3)
}

func TestMissingSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg/a.cc"), []byte("int a;\n"), 0644))

	cmds := []*canonical.Command{
		{Directory: dir, SourceFile: "pkg/a.cc"},
		{Directory: dir, SourceFile: "bazel-out/k8-fastbuild/bin/gen/b.pb.cc"},
		{Directory: dir, SourceFile: "bazel-out/k8-fastbuild/bin/gen/a.pb.cc"},
	}

	missing := missingSources(cmds)
	assert.Equal(t, []string{
		"bazel-out/k8-fastbuild/bin/gen/a.pb.cc",
		"bazel-out/k8-fastbuild/bin/gen/b.pb.cc",
	}, missing)

	assert.Empty(t, missingSources(cmds[:1]))
}

func TestHeaderPrefilter(t *testing.T) {
	t.Parallel()

	cfgFor := func(mode string) *config.Config {
		cfg := config.Default()
		cfg.Headers.Exclude = mode
		return cfg
	}

	cfg := cfgFor(config.ExcludeHeadersNone)
	filter, err := compiledb.NewFilter("/ws", cfg)
	require.NoError(t, err)
	assert.Nil(t, headerPrefilter(filter, cfg), "no prefiltering needed when everything is kept")

	cfg = cfgFor(config.ExcludeHeadersAll)
	filter, err = compiledb.NewFilter("/ws", cfg)
	require.NoError(t, err)
	keep := headerPrefilter(filter, cfg)
	require.NotNil(t, keep)
	assert.False(t, keep("pkg/a.h"))

	cfg = cfgFor(config.ExcludeHeadersExternal)
	filter, err = compiledb.NewFilter("/ws", cfg)
	require.NoError(t, err)
	keep = headerPrefilter(filter, cfg)
	require.NotNil(t, keep)
	assert.True(t, keep("pkg/a.h"))
	assert.False(t, keep("external/dep/d.h"))
}

func TestCommandTree(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "refresh")
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "clean")
	assert.Contains(t, names, "version")
}
