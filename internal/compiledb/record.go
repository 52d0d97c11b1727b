// Package compiledb assembles and serializes JSON compilation databases.
// Format: https://clang.llvm.org/docs/JSONCompilationDatabase.html
package compiledb

// Record is one compilation database entry. The schema is externally fixed
// and must not be extended: its sole purpose is interoperability with
// independent downstream tooling.
//
// The `arguments` list form is used rather than a `command` string because
// it needs no shell-quoting round trip and tooling prefers it.
type Record struct {
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Directory string   `json:"directory"`
}

// DefaultFileName is the artifact name tooling looks for.
const DefaultFileName = "compile_commands.json"

// ArtifactName returns the database file name for a named group.
// The empty group is the ungrouped default.
func ArtifactName(group string) string {
	if group == "" {
		return DefaultFileName
	}
	return "compile_commands." + group + ".json"
}
