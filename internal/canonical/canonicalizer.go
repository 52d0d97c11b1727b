package canonical

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"

	"github.com/mvp-joe/bazel-compdb/internal/bazel"
)

// Canonicalizer rewrites raw actions into canonical commands. One instance
// serves a whole run; Canonicalize is safe for concurrent use.
type Canonicalizer struct {
	workspaceRoot string
	execRoot      string
	outputBase    string
	platform      string
	msvcIncludes  []string

	noOutputWarn sync.Once
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithPlatform overrides the host platform used for rule lookup.
func WithPlatform(goos string) Option {
	return func(c *Canonicalizer) { c.platform = goos }
}

// WithMSVCIncludePaths supplies the default system include paths injected
// into MSVC commands, whose resolved driver can't report them itself.
func WithMSVCIncludePaths(paths []string) Option {
	return func(c *Canonicalizer) { c.msvcIncludes = paths }
}

// New creates a Canonicalizer for the given workspace.
func New(ws *bazel.Workspace, opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		workspaceRoot: ws.Root,
		execRoot:      ws.ExecutionRoot,
		outputBase:    ws.OutputBase,
		platform:      runtime.GOOS,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Canonicalize rewrites one action into a directly executable command.
// It returns (nil, nil) for housekeeping actions that compile nothing, and
// an *UnwrapError for wrapper shapes no registered rule recognizes.
// Canonicalization never changes which file is compiled, only how the
// compilation is expressed.
func (c *Canonicalizer) Canonicalize(action bazel.Action) (*Command, error) {
	if !bazel.IsCompile(action.Mnemonic) {
		return nil, nil
	}
	if len(action.Arguments) == 0 {
		return nil, &UnwrapError{Args: nil, Reason: "empty argument vector"}
	}

	// 1. Param-file expansion. Param files live in the execroot; resolve
	// them from the workspace root, which mirrors it via symlinks.
	args, err := expandParamFiles(action.Arguments, c.workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to expand param files: %w", err)
	}

	// 2. Driver unwrap via the (platform, toolchain) registry.
	toolchain, rule, ok := lookupRule(c.platform, args)
	if !ok {
		return nil, &UnwrapError{Args: args, Reason: "no rule registered for this wrapper shape"}
	}
	args, err = rule.Unwrap(args)
	if err != nil {
		if _, isUnwrap := err.(*UnwrapError); isUnwrap {
			return nil, err
		}
		return nil, &UnwrapError{Args: args, Reason: err.Error()}
	}

	// 3. Path rewrite: nothing rooted in the transient execution sandbox
	// may survive into durable output.
	args = c.rewritePaths(args)

	// 4. Default-include injection for toolchains that need it.
	if toolchain == "msvc" {
		args = injectDefaultIncludes(args, c.msvcIncludes)
	}

	// 5. Flag sanitation.
	args = sanitizeArgs(args)

	source, err := detectSourceFile(args)
	if err != nil {
		return nil, fmt.Errorf("failed to identify compiled source: %w", err)
	}

	output := detectOutputFile(args)
	if output == "" {
		// Commands still tie-break on the output file when one source is
		// compiled more than once, so surface this shape for a bug report.
		c.noOutputWarn.Do(func() {
			log.Printf("Warning: no output file detected in the compile command for %s. "+
				"Please file an issue with the command so detection can be extended.", source)
		})
	}

	return &Command{
		Arguments:   args,
		Directory:   c.workspaceRoot,
		SourceFile:  source,
		Toolchain:   toolchain,
		Depfile:     detectDepfile(args),
		OutputFile:  output,
		External:    action.External,
		Group:       action.Group,
		Environment: action.Environment,
	}, nil
}

// rewritePaths replaces every path rooted in the execution sandbox or the
// output base with an equivalent path under the stable workspace tree.
// Execroot-relative spellings (bazel-out/..., external/...) stay valid from
// the workspace root because refresh maintains the //external symlink and
// Bazel maintains bazel-out.
func (c *Canonicalizer) rewritePaths(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if c.execRoot != "" {
			switch {
			case arg == c.execRoot:
				arg = "."
			default:
				arg = strings.ReplaceAll(arg, c.execRoot+"/", "")
			}
		}
		if c.outputBase != "" {
			arg = strings.ReplaceAll(arg, c.outputBase+"/external/", "external/")
		}
		out[i] = arg
	}
	return out
}

// injectDefaultIncludes appends /I arguments for include paths the command
// doesn't already search.
func injectDefaultIncludes(args []string, includes []string) []string {
	if len(includes) == 0 {
		return args
	}
	present := make(map[string]bool)
	for _, arg := range args {
		if strings.HasPrefix(arg, "/I") {
			present[arg[2:]] = true
		}
	}
	for _, inc := range includes {
		if !present[inc] {
			args = append(args, "/I"+inc)
		}
	}
	return args
}

// sanitizeArgs drops sandbox-relative and environment-dependent flags that
// have no meaning outside the sandbox, and rewrites the ones downstream
// tooling chokes on.
func sanitizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		// Module caches would be dumped relative to whatever directory the
		// consumer runs in. https://github.com/clangd/clangd/issues/655
		case strings.HasPrefix(arg, "-fmodules-cache-path=bazel-out/"):
			continue
		// GCC-only; clang tooling rejects it.
		// https://github.com/clangd/clangd/issues/1004
		case arg == "-fno-canonical-system-headers":
			continue
		// https://github.com/clangd/clangd/issues/1248
		case strings.HasPrefix(arg, "-gcc-toolchain"):
			if arg == "-gcc-toolchain" {
				skipNext = true
			}
			continue
		// clang accepts -isysroot <path> (undocumented) and --sysroot=, but
		// tooling mishandles --sysroot. https://github.com/hedronvision/bazel-compile-commands-extractor/issues/82
		case strings.HasPrefix(arg, "--sysroot"):
			rest := strings.TrimPrefix(arg[len("--sysroot"):], "=")
			if rest == "" {
				out = append(out, "-isysroot")
			} else {
				out = append(out, "-isysroot"+rest)
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}

// detectDepfile finds the Makefile-format dependency file the action
// declares, either appended (-MF<file>) or as a separate argument.
func detectDepfile(args []string) string {
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-MF") {
			continue
		}
		if len(arg) > len("-MF") {
			return arg[len("-MF"):]
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// detectOutputFile parses the declared object file out of the arguments.
// Handles the forms Bazel emits for gcc/clang and MSVC.
func detectOutputFile(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "-o" || arg == "--output":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--output="):
			return arg[len("--output="):]
		case strings.HasPrefix(arg, "/Fo"), strings.HasPrefix(arg, "-Fo"):
			return arg[3:]
		}
	}
	return ""
}
