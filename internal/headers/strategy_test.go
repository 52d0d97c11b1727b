package headers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/bazel-compdb/internal/canonical"
)

// Test Plan for header strategies:
// - DepfileStrategy reads the declared depfile relative to the directory
// - DepfileStrategy falls back when the depfile is missing
// - DepfileStrategy without fallback reports no headers
// - ScanStrategy strips -M/-o/sanitizer flags and appends dependency flags
// - ScanStrategy parses scan output as a depfile
// - ScanStrategy adds /showIncludes /EP and INCLUDE for MSVC commands
// - ScanStrategy passes the action's environment overrides to the scan
// - ScanStrategy converts deadline expiry into *ScanTimeout

func gccCommand(dir string) *canonical.Command {
	return &canonical.Command{
		Arguments:  []string{"gcc", "-MD", "-MF", "pkg/a.d", "-fsanitize=address", "-c", "pkg/a.cc", "-o", "pkg/a.o"},
		Directory:  dir,
		SourceFile: "pkg/a.cc",
		Toolchain:  "gcc-clang",
		Depfile:    "pkg/a.d",
	}
}

func TestDepfileStrategy_ReadsDepfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg/a.d"), []byte("pkg/a.o: pkg/a.cc pkg/a.h\n"), 0644))

	s := &DepfileStrategy{}
	headers, err := s.Headers(context.Background(), gccCommand(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a.h"}, headers)
}

func TestDepfileStrategy_FallsBackWhenMissing(t *testing.T) {
	t.Parallel()

	fallback := &ScanStrategy{
		run: func(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
			return []byte("pkg/a.o: pkg/a.cc include/fallback.h\n"), nil, nil
		},
	}
	s := &DepfileStrategy{Fallback: fallback}

	headers, err := s.Headers(context.Background(), gccCommand(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, []string{"include/fallback.h"}, headers)
}

func TestDepfileStrategy_NoFallback(t *testing.T) {
	t.Parallel()

	s := &DepfileStrategy{}
	headers, err := s.Headers(context.Background(), gccCommand(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestScanStrategy_GCCArgumentSurgery(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	var gotDir string
	s := &ScanStrategy{
		run: func(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
			gotDir = dir
			gotArgs = args
			return []byte("pkg/a.o: pkg/a.cc pkg/a.h\n"), nil, nil
		},
	}

	cmd := gccCommand("/ws")
	headers, err := s.Headers(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a.h"}, headers)

	assert.Equal(t, "/ws", gotDir)
	assert.Equal(t, []string{
		"gcc", "-c", "pkg/a.cc",
		"--dependencies", "--print-missing-file-dependencies",
	}, gotArgs)
}

func TestScanStrategy_MSVC(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	var gotEnv []string
	s := &ScanStrategy{
		MSVCIncludePaths: []string{`C:\VC\include`},
		run: func(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
			gotArgs = args
			gotEnv = env
			return nil, []byte("Note: including file: C:\\VC\\include\\vector\n"), nil
		},
	}

	cmd := &canonical.Command{
		Arguments:  []string{"cl.exe", "/c", "pkg/a.cpp"},
		Directory:  "/ws",
		SourceFile: "pkg/a.cpp",
		Toolchain:  "msvc",
	}
	headers, err := s.Headers(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\VC\include\vector`}, headers)

	assert.Equal(t, []string{"cl.exe", "/c", "pkg/a.cpp", "/showIncludes", "/EP"}, gotArgs)

	found := false
	for _, kv := range gotEnv {
		if strings.HasPrefix(kv, "INCLUDE=") && strings.Contains(kv, `C:\VC\include`) {
			found = true
		}
	}
	assert.True(t, found, "INCLUDE must carry the configured default paths")
}

func TestScanStrategy_PassesActionEnvironment(t *testing.T) {
	t.Parallel()

	var gotEnv []string
	s := &ScanStrategy{
		run: func(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
			gotEnv = env
			return []byte("pkg/a.o: pkg/a.cc pkg/a.h\n"), nil, nil
		},
	}

	cmd := gccCommand("/ws")
	cmd.Environment = map[string]string{"PWD": "/proc/self/cwd"}
	_, err := s.Headers(context.Background(), cmd)
	require.NoError(t, err)

	assert.Contains(t, gotEnv, "PWD=/proc/self/cwd")
	assert.Greater(t, len(gotEnv), 1, "the inherited environment must be kept alongside the overrides")
}

func TestScanStrategy_Timeout(t *testing.T) {
	t.Parallel()

	s := &ScanStrategy{
		Timeout: 10 * time.Millisecond,
		run: func(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
			<-ctx.Done()
			return nil, nil, ctx.Err()
		},
	}

	_, err := s.Headers(context.Background(), gccCommand("/ws"))
	var timeout *ScanTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "pkg/a.cc", timeout.Source)
}

func TestScanStrategy_NoOutput(t *testing.T) {
	t.Parallel()

	s := &ScanStrategy{
		run: func(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
			return nil, nil, fmt.Errorf("exit status 1")
		},
	}

	headers, err := s.Headers(context.Background(), gccCommand("/ws"))
	require.NoError(t, err, "scan failures degrade to no headers")
	assert.Empty(t, headers)
}
