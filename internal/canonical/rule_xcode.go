package canonical

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// xcodeRule undoes Bazel's Apple compiler wrapping. Bazel exports the
// compiler as external/local_config_cc/wrapped_clang with __BAZEL_XCODE_*
// macros in the arguments; downstream tooling needs a clang call it can
// introspect, and the Xcode-installed wrapper crashes without particular
// environment variables anyway.
// The substitutions mirror the essentials of
// https://github.com/bazelbuild/bazel/blob/master/tools/osx/crosstool/wrapped_clang.cc
type xcodeRule struct {
	once sync.Once

	clangPath    string
	developerDir string
	initErr      error

	// Overridable for tests; default to xcrun / xcode-select.
	findClang        func() (string, error)
	findDeveloperDir func() (string, error)
}

var applePlatformPattern = regexp.MustCompile(`/Platforms/([a-zA-Z]+)\.platform/Developer/`)

func (r *xcodeRule) Matches(args []string) bool {
	// The macro fragment occurs with the Xcode-installed wrapper, but not
	// the CommandLineTools wrapper, which works fine as-is.
	for _, arg := range args {
		if strings.Contains(arg, "__BAZEL_XCODE_") {
			return true
		}
	}
	return false
}

func (r *xcodeRule) Unwrap(args []string) ([]string, error) {
	r.once.Do(func() {
		r.clangPath, r.initErr = r.findClang()
		if r.initErr != nil {
			return
		}
		r.developerDir, r.initErr = r.findDeveloperDir()
	})
	if r.initErr != nil {
		return nil, fmt.Errorf("failed to resolve the active Xcode toolchain: %w", r.initErr)
	}

	out := make([]string, 0, len(args))
	for i, arg := range args {
		if i == 0 {
			out = append(out, r.clangPath)
			continue
		}
		// Debug prefix maps only matter when actually compiling in the
		// sandbox, which we never do.
		if strings.HasPrefix(arg, "DEBUG_PREFIX_MAP_PWD") && arg != "OSO_PREFIX_MAP_PWD" {
			continue
		}
		out = append(out, strings.ReplaceAll(arg, "__BAZEL_XCODE_DEVELOPER_DIR__", r.developerDir))
	}

	if containsMacro(out, "__BAZEL_XCODE_SDKROOT__") {
		platform := applePlatform(out)
		if platform == "" {
			return nil, &UnwrapError{Args: args, Reason: "Apple platform not detected in arguments"}
		}
		sdkRoot := fmt.Sprintf("%s/Platforms/%s.platform/Developer/SDKs/%s.sdk", r.developerDir, platform, platform)
		for i, arg := range out {
			out[i] = strings.ReplaceAll(arg, "__BAZEL_XCODE_SDKROOT__", sdkRoot)
		}
	}

	return out, nil
}

func containsMacro(args []string, macro string) bool {
	for _, arg := range args {
		if strings.Contains(arg, macro) {
			return true
		}
	}
	return false
}

// applePlatform mines the SDK platform name (as Xcode spells it, e.g.
// iPhoneOS rather than iOS) out of the include paths, which is the only
// place Bazel states it.
func applePlatform(args []string) string {
	for _, arg := range args {
		if m := applePlatformPattern.FindStringSubmatch(arg); m != nil {
			return m[1]
		}
	}
	return ""
}

func xcrunFindClang() (string, error) {
	out, err := exec.Command("xcrun", "--find", "clang").Output()
	if err != nil {
		return "", fmt.Errorf("xcrun --find clang: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func xcodeSelectDeveloperDir() (string, error) {
	out, err := exec.Command("xcode-select", "--print-path").Output()
	if err != nil {
		return "", fmt.Errorf("xcode-select --print-path: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func init() {
	Register("darwin", "xcode-wrapped-clang", &xcodeRule{
		findClang:        xcrunFindClang,
		findDeveloperDir: xcodeSelectDeveloperDir,
	})
}
