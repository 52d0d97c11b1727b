package compiledb

import (
	"sort"

	"github.com/mvp-joe/bazel-compdb/internal/canonical"
	"github.com/mvp-joe/bazel-compdb/internal/headers"
)

// Assembler merges canonical commands and header associations into
// filtered, deterministically ordered databases.
type Assembler struct {
	filter *Filter
}

// NewAssembler creates an Assembler applying the given filter.
func NewAssembler(filter *Filter) *Assembler {
	return &Assembler{filter: filter}
}

// Assemble produces one record list per artifact name. Headers inherit the
// group of their representative command. Within each artifact, records are
// sorted by file path and no file path appears twice, so repeated runs
// over an unchanged action set produce byte-identical databases.
func (a *Assembler) Assemble(cmds []*canonical.Command, idx *headers.Index) map[string][]Record {
	// Fixed iteration order, matching the header index's resolution order.
	ordered := make([]*canonical.Command, len(cmds))
	copy(ordered, cmds)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SourceFile != ordered[j].SourceFile {
			return ordered[i].SourceFile < ordered[j].SourceFile
		}
		return ordered[i].OutputFile < ordered[j].OutputFile
	})

	// Headers grouped back by representative command, so the language hint
	// is computed once per command and shared by its source and header
	// records.
	headersByCommand := make(map[*canonical.Command][]string)
	if idx != nil {
		idx.Each(func(header string, cmd *canonical.Command) {
			headersByCommand[cmd] = append(headersByCommand[cmd], header)
		})
	}

	finalArgs := make(map[*canonical.Command][]string, len(ordered))
	for _, cmd := range ordered {
		args := cmd.Arguments
		if hint := canonical.LanguageHintArgs(cmd, headersByCommand[cmd]); len(hint) > 0 {
			// After argv[0]: a language selection only takes effect on
			// files listed after it.
			withHint := make([]string, 0, len(args)+len(hint))
			withHint = append(withHint, args[0])
			withHint = append(withHint, hint...)
			withHint = append(withHint, args[1:]...)
			args = withHint
		}
		finalArgs[cmd] = args
	}

	artifacts := make(map[string][]Record)
	emitted := make(map[string]bool)

	emit := func(file string, cmd *canonical.Command) {
		if emitted[file] {
			return
		}
		emitted[file] = true
		name := ArtifactName(cmd.Group)
		artifacts[name] = append(artifacts[name], Record{
			File:      file,
			Arguments: finalArgs[cmd],
			Directory: cmd.Directory,
		})
	}

	for _, cmd := range ordered {
		if a.filter.KeepSource(cmd.SourceFile, cmd.External) {
			emit(cmd.SourceFile, cmd)
		}
	}
	if idx != nil {
		idx.Each(func(header string, cmd *canonical.Command) {
			if a.filter.KeepHeader(header, cmd.External) {
				emit(header, cmd)
			}
		})
	}

	for name := range artifacts {
		records := artifacts[name]
		sort.Slice(records, func(i, j int) bool { return records[i].File < records[j].File })
	}
	return artifacts
}
