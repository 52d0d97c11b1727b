package canonical

import (
	"path/filepath"
	"strings"
)

// msvcRule accepts cl.exe and clang-cl.exe invocations. There is no wrapper
// to remove; what MSVC commands are missing is the implicit system include
// path, which cl.exe normally reads from the INCLUDE environment variable
// set by vcvars. Bazel doesn't export it per action
// (https://github.com/bazelbuild/bazel/issues/12852), so the canonicalizer
// injects the configured default include paths explicitly after unwrapping.
type msvcRule struct{}

func (msvcRule) Matches(args []string) bool {
	if len(args) == 0 {
		return false
	}
	base := strings.ToLower(filepath.Base(filepath.ToSlash(args[0])))
	return base == "cl.exe" || base == "clang-cl.exe" || base == "cl" || base == "clang-cl"
}

func (msvcRule) Unwrap(args []string) ([]string, error) {
	return args, nil
}

func init() {
	Register("windows", "msvc", msvcRule{})
}
