package bazel

import "strings"

// Action is one planned compiler invocation as reported by bazel aquery,
// prior to execution. Actions are immutable once ingested.
type Action struct {
	// Mnemonic is the compile-family tag, e.g. "CppCompile" or "ObjcCompile".
	Mnemonic string
	// Arguments is the raw, sandbox-relative argument vector.
	Arguments []string
	// TargetLabel is the label of the owning target, e.g. "//pkg:lib".
	TargetLabel string
	// Environment holds per-action environment overrides.
	Environment map[string]string
	// External marks actions owned by targets fetched from external
	// repositories (labels starting with "@" but not "@//").
	External bool
	// Group is the named output group of the requested target pattern this
	// action was ingested for. Empty for the default group.
	Group string
}

// compileMnemonics are the compile-family mnemonics we retain. Everything
// else aquery reports for the deps closure is housekeeping (linking,
// middlemen, symlinks) and is discarded.
var compileMnemonics = map[string]bool{
	"CppCompile":  true,
	"ObjcCompile": true,
}

// IsCompile reports whether the mnemonic belongs to the compile family.
func IsCompile(mnemonic string) bool {
	return compileMnemonics[mnemonic]
}

// isExternalLabel reports whether a target label lives in an external
// repository. "@//x" is the main repository spelled explicitly, so only
// "@repo//x" counts.
func isExternalLabel(label string) bool {
	return strings.HasPrefix(label, "@") && !strings.HasPrefix(label, "@//")
}
