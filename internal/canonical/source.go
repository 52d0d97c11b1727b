package canonical

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extension tables for the whole C-language family.
// Clang's own list: https://github.com/llvm/llvm-project/blob/main/clang/lib/Driver/Types.cpp
var (
	cSourceExtensions        = []string{".c", ".i"}
	cppSourceExtensions      = []string{".cc", ".cpp", ".cxx", ".c++", ".C", ".CC", ".cp", ".CPP", ".C++", ".CXX", ".ii"}
	objcSourceExtensions     = []string{".m"}
	objcppSourceExtensions   = []string{".mm", ".M"}
	cudaSourceExtensions     = []string{".cu", ".cui"}
	openclSourceExtensions   = []string{".cl"}
	openclxxSourceExtensions = []string{".clcpp"}
	asmSourceExtensions      = []string{".s", ".asm"}
	asmCppSourceExtensions   = []string{".S"}
)

var sourceExtensions = concat(
	cSourceExtensions, cppSourceExtensions, objcSourceExtensions,
	objcppSourceExtensions, cudaSourceExtensions, openclSourceExtensions,
	openclxxSourceExtensions, asmSourceExtensions, asmCppSourceExtensions,
)

// extensionLanguageArgs maps a source extension to the -x flag that names
// its language. clangd fails on the --language / -ObjC spellings, so the
// -x forms are used throughout.
var extensionLanguageArgs = buildLanguageArgs()

func buildLanguageArgs() map[string]string {
	m := make(map[string]string)
	add := func(exts []string, flag string) {
		for _, ext := range exts {
			m[ext] = flag
		}
	}
	add(cSourceExtensions, "-xc")
	add(cppSourceExtensions, "-xc++")
	add(objcSourceExtensions, "-xobjective-c")
	add(objcppSourceExtensions, "-xobjective-c++")
	add(cudaSourceExtensions, "-xcuda")
	add(openclSourceExtensions, "-xcl")
	add(openclxxSourceExtensions, "-xclcpp")
	add(asmSourceExtensions, "-xassembler")
	add(asmCppSourceExtensions, "-xassembler-with-cpp")
	return m
}

func concat(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return all
}

// hasSourceExtension does a case-sensitive extension check; .C and .c are
// different languages.
func hasSourceExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// IsAssemblySource reports whether path is non-preprocessed assembly, which
// cannot include headers.
func IsAssemblySource(path string) bool {
	return hasSourceExtension(path, asmSourceExtensions)
}

// IsCSource reports whether path compiles as plain C.
func IsCSource(path string) bool {
	return hasSourceExtension(path, cSourceExtensions)
}

// detectSourceFile finds the file an argument vector compiles.
//
// Candidates are the non-flag arguments carrying a source extension. When
// several match (header search directories can end in source extensions,
// horribly), Bazel's own formatting disambiguates: the source precedes -o
// in GCC-formatted commands and follows /c in MSVC-formatted ones.
func detectSourceFile(args []string) (string, error) {
	var candidates []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if hasSourceExtension(arg, sourceExtensions) {
			candidates = append(candidates, arg)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no source file found in compile arguments %v", args)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	var source string
	if i := indexOf(args, "-o"); i > 0 {
		source = args[i-1]
	} else if i := indexOf(args, "/c"); i >= 0 && i+1 < len(args) {
		source = args[i+1]
	} else {
		return "", fmt.Errorf("multiple source file candidates %v and neither -o nor /c to disambiguate", candidates)
	}
	if !hasSourceExtension(source, sourceExtensions) {
		return "", fmt.Errorf("source file candidate %q has no source extension", source)
	}
	return source, nil
}

func indexOf(args []string, want string) int {
	for i, arg := range args {
		if arg == want {
			return i
		}
	}
	return -1
}

// LanguageHintArgs returns the argument, if any, that should be prepended
// (after argv[0]) so tooling parses ambiguous .h headers reached from cmd
// in the right language. C sources need no hint, and commands that already
// carry a language selection are left alone.
func LanguageHintArgs(cmd *Command, headers []string) []string {
	hasDotH := false
	for _, h := range headers {
		if strings.HasSuffix(h, ".h") {
			hasDotH = true
			break
		}
	}
	if !hasDotH || IsCSource(cmd.SourceFile) {
		return nil
	}
	for _, arg := range cmd.Arguments {
		lower := strings.ToLower(arg)
		if strings.HasPrefix(arg, "-x") || strings.HasPrefix(arg, "--language") ||
			lower == "-objc" || lower == "-objc++" || lower == "/tc" || lower == "/tp" {
			return nil
		}
	}
	if cmd.Toolchain == "msvc" {
		return []string{"/TP"}
	}
	ext := filepath.Ext(cmd.SourceFile)
	if flag, ok := extensionLanguageArgs[ext]; ok {
		return []string{flag}
	}
	return nil
}
