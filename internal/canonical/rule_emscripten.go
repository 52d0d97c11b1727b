package canonical

import (
	"os/exec"
	"strings"
	"sync"
)

// emscriptenRule handles Bazel's emcc wrapper. Running emcc itself needs a
// pile of environment variables and a configuration file, so rather than
// unwrapping it we swap in clang (or gcc), which accepts the same argument
// format and is all downstream tooling and header scanning need.
type emscriptenRule struct {
	once sync.Once

	alternate string

	// Overridable for tests; defaults to a PATH lookup.
	findAlternate func() string
}

func (r *emscriptenRule) Matches(args []string) bool {
	if len(args) == 0 {
		return false
	}
	return strings.HasSuffix(args[0], "emcc.sh") || strings.HasSuffix(args[0], "emcc.bat")
}

func (r *emscriptenRule) Unwrap(args []string) ([]string, error) {
	r.once.Do(func() {
		r.alternate = r.findAlternate()
	})
	if r.alternate == "" {
		return nil, &UnwrapError{Args: args, Reason: "neither clang nor gcc found on PATH to stand in for emcc"}
	}
	out := make([]string, len(args))
	copy(out, args)
	out[0] = r.alternate
	return out, nil
}

func findClangOrGCC() string {
	if _, err := exec.LookPath("clang"); err == nil {
		return "clang"
	}
	if _, err := exec.LookPath("gcc"); err == nil {
		return "gcc"
	}
	return ""
}

func init() {
	Register("any", "emscripten", &emscriptenRule{findAlternate: findClangOrGCC})
}
