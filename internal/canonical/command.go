// Package canonical rewrites Bazel's sandboxed compile actions into
// directly executable, durably pathed compiler commands.
package canonical

import "fmt"

// Command is a de-wrapped, path-resolved compiler invocation. Exactly one
// exists per retained action. Running Arguments from Directory reproduces
// the compilation without any Bazel-specific wrappers or environment.
type Command struct {
	// Arguments is the executable argument vector, argv[0] included.
	Arguments []string
	// Directory is the working directory the command must run from
	// (the workspace root).
	Directory string
	// SourceFile is the file this command compiles, relative to Directory.
	SourceFile string
	// Toolchain is the registry key of the unwrap rule that matched,
	// e.g. "gcc-clang" or "msvc".
	Toolchain string
	// Depfile is the Makefile-format dependency file the action declares
	// via -MF, if any. Workspace-relative.
	Depfile string
	// OutputFile is the declared object file, if it could be determined.
	OutputFile string
	// Environment holds the action's per-invocation environment overrides,
	// needed when the compiler is re-invoked for header scanning.
	Environment map[string]string
	// External marks commands owned by external-repository targets.
	External bool
	// Group is the named output group inherited from the requested target.
	Group string
}

// UnwrapError reports an argument vector whose wrapper shape no registered
// rule recognizes. It is recoverable: the action is dropped with a warning
// and the run continues, since partial coverage beats total failure.
type UnwrapError struct {
	Args   []string
	Reason string
}

func (e *UnwrapError) Error() string {
	argv0 := ""
	if len(e.Args) > 0 {
		argv0 = e.Args[0]
	}
	return fmt.Sprintf("unrecognized compiler wrapper %q: %s", argv0, e.Reason)
}
