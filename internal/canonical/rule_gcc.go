package canonical

import (
	"path/filepath"
	"strings"
)

// gccRule accepts invocations that already name a gcc-formatted driver
// directly. Nothing to unwrap; Bazel's Linux and Android toolchains (and
// the grailbio LLVM toolchain) are fine as-is.
type gccRule struct{}

var gccDriverNames = []string{"gcc", "g++", "clang", "clang++", "cc", "c++"}

func (gccRule) Matches(args []string) bool {
	if len(args) == 0 {
		return false
	}
	return looksLikeGCCDriver(args[0])
}

func (gccRule) Unwrap(args []string) ([]string, error) {
	return args, nil
}

// looksLikeGCCDriver matches plain driver names as well as the versioned
// and target-prefixed forms toolchains ship, e.g. "aarch64-linux-gnu-gcc"
// or "clang-15".
func looksLikeGCCDriver(argv0 string) bool {
	base := filepath.Base(filepath.ToSlash(argv0))
	base = strings.TrimSuffix(base, ".exe")
	if base == "cl" || base == "clang-cl" {
		// MSVC argument formatting, owned by the msvc rule.
		return false
	}
	for _, name := range gccDriverNames {
		if base == name || strings.HasSuffix(base, "-"+name) || strings.HasPrefix(base, name+"-") {
			return true
		}
	}
	return false
}

func init() {
	// Registered last in this file set: specific wrapper rules in the other
	// files register against concrete platforms and are consulted first.
	Register("any", "gcc-clang", gccRule{})
}
