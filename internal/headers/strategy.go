package headers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mvp-joe/bazel-compdb/internal/canonical"
)

// Strategy discovers the headers transitively reachable from one canonical
// command's source file. The two implementations are interchangeable;
// which one fits depends on what the build actually exposes.
type Strategy interface {
	Headers(ctx context.Context, cmd *canonical.Command) ([]string, error)
}

// ScanTimeout reports a header-scan sub-invocation that exceeded its
// budget. Recoverable: the command is treated as discovering no headers.
type ScanTimeout struct {
	Source string
}

func (e *ScanTimeout) Error() string {
	return fmt.Sprintf("header scan for %s timed out", e.Source)
}

// DepfileStrategy consumes the declared-include depfile the action already
// names via -MF, costing no extra compilation. Commands without a usable
// depfile fall through to Fallback when one is configured.
type DepfileStrategy struct {
	// Fallback handles commands with no (or an unreadable) depfile.
	// Nil means such commands report no headers.
	Fallback Strategy
}

func (s *DepfileStrategy) Headers(ctx context.Context, cmd *canonical.Command) ([]string, error) {
	if cmd.Depfile == "" {
		return s.fallback(ctx, cmd)
	}
	path := cmd.Depfile
	if !filepath.IsAbs(path) {
		path = filepath.Join(cmd.Directory, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		// The depfile only exists after a build has run this action.
		return s.fallback(ctx, cmd)
	}
	return ParseDepfile(string(data), cmd.SourceFile)
}

func (s *DepfileStrategy) fallback(ctx context.Context, cmd *canonical.Command) ([]string, error) {
	if s.Fallback == nil {
		return nil, nil
	}
	return s.Fallback.Headers(ctx, cmd)
}

// ScanStrategy re-invokes the real compiler per command in a
// dependency-listing mode and parses the resulting file list. Relatively
// slow; runs one process per compiled file.
type ScanStrategy struct {
	// Timeout bounds each scan invocation. Zero means no limit.
	Timeout time.Duration
	// MSVCIncludePaths populates the INCLUDE environment variable for
	// cl.exe scans, since Bazel doesn't export it per action.
	MSVCIncludePaths []string

	// run is swappable for tests; defaults to exec.
	run func(ctx context.Context, dir string, env []string, args []string) (stdout, stderr []byte, err error)

	warnOnce sync.Once
}

func (s *ScanStrategy) Headers(ctx context.Context, cmd *canonical.Command) ([]string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var headers []string
	var err error
	if cmd.Toolchain == "msvc" {
		headers, err = s.scanMSVC(ctx, cmd)
	} else {
		headers, err = s.scanGCC(ctx, cmd)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &ScanTimeout{Source: cmd.SourceFile}
	}
	return headers, err
}

// scanGCC runs the command with dependency generation redirected to stdout.
// Output and existing -M flags are stripped first: Apple clang tries a full
// compile without the former and doesn't let later -M flags override the
// latter.
func (s *ScanStrategy) scanGCC(ctx context.Context, cmd *canonical.Command) ([]string, error) {
	scanArgs := make([]string, 0, len(cmd.Arguments)+2)
	for _, arg := range cmd.Arguments {
		switch {
		case strings.HasPrefix(arg, "-M"),
			strings.HasSuffix(arg, "-dependencies"),
			strings.HasSuffix(arg, ".d"):
			continue
		case arg == "-o", strings.HasSuffix(arg, ".o"):
			continue
		// Sanitizer ignore lists would show up in the dependency list.
		case strings.HasPrefix(arg, "-fsanitize"):
			continue
		}
		scanArgs = append(scanArgs, arg)
	}
	// Tolerate missing generated files; the code doesn't have to compile
	// for header discovery to work.
	scanArgs = append(scanArgs, "--dependencies", "--print-missing-file-dependencies")

	stdout, stderr, err := s.exec(ctx, cmd.Directory, scanEnv(cmd), scanArgs)
	if len(stderr) > 0 {
		s.warnCompilerNoise()
		log.Printf("%s", stderr)
	}
	if len(stdout) == 0 {
		// Worst case we couldn't get the headers; often we can despite err.
		if err != nil && ctx.Err() == nil {
			log.Printf("Warning: header scan produced no output for %s: %v", cmd.SourceFile, err)
		}
		return nil, nil
	}
	return ParseDepfile(string(stdout), cmd.SourceFile)
}

// scanMSVC preprocesses with /showIncludes, reading headers off stderr.
// /EP keeps cl.exe from compiling and writes the (ignored) preprocessor
// output to stdout.
func (s *ScanStrategy) scanMSVC(ctx context.Context, cmd *canonical.Command) ([]string, error) {
	scanArgs := append(append([]string{}, cmd.Arguments...), "/showIncludes", "/EP")

	var include []string
	if len(s.MSVCIncludePaths) > 0 {
		include = []string{"INCLUDE=" + strings.Join(s.MSVCIncludePaths, string(os.PathListSeparator))}
	}

	_, stderr, _ := s.exec(ctx, cmd.Directory, scanEnv(cmd, include...), scanArgs)
	headers, diagnostics := parseShowIncludes(string(stderr), cmd.SourceFile)
	if len(diagnostics) > 0 {
		s.warnCompilerNoise()
		log.Printf("%s", strings.Join(diagnostics, "\n"))
	}
	return headers, nil
}

func (s *ScanStrategy) exec(ctx context.Context, dir string, env []string, args []string) ([]byte, []byte, error) {
	if s.run != nil {
		return s.run(ctx, dir, env, args)
	}
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = dir
	c.Env = env
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// scanEnv builds a scan subprocess environment: the inherited one, the
// action's own overrides in sorted key order, then any extra entries. Nil
// (inherit as-is) when there is nothing to add.
func scanEnv(cmd *canonical.Command, extra ...string) []string {
	if len(cmd.Environment) == 0 && len(extra) == 0 {
		return nil
	}
	env := os.Environ()
	keys := make([]string, 0, len(cmd.Environment))
	for k := range cmd.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+cmd.Environment[k])
	}
	return append(env, extra...)
}

// warnCompilerNoise gives users context about "compiler errors" during
// header discovery, once: the code doesn't have to compile for this tool
// to work, but the diagnostics may still be useful to them.
func (s *ScanStrategy) warnCompilerNoise() {
	s.warnOnce.Do(func() {
		log.Println("Warning: the compiler reported diagnostics while locating headers. " +
			"Your code doesn't have to compile for header discovery to work; the messages are printed in case they help. " +
			"If files Bazel should generate are missing, run a build with --keep_going first.")
	})
}
