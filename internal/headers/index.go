package headers

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/mvp-joe/bazel-compdb/internal/canonical"
)

// Index maps each discovered header to exactly one representative canonical
// command. Assignment is first-write-wins under a fixed iteration order
// (lexical order of the retained commands' source paths), so repeated runs
// over an unchanged action set associate identically — which downstream
// caching tools depend on.
type Index struct {
	byHeader map[string]*canonical.Command
}

// Lookup returns the representative command for a header.
func (x *Index) Lookup(header string) (*canonical.Command, bool) {
	cmd, ok := x.byHeader[header]
	return cmd, ok
}

// Len returns the number of associated headers.
func (x *Index) Len() int { return len(x.byHeader) }

// Each calls fn for every (header, command) pair in lexical header order.
func (x *Index) Each(fn func(header string, cmd *canonical.Command)) {
	keys := make([]string, 0, len(x.byHeader))
	for h := range x.byHeader {
		keys = append(keys, h)
	}
	sort.Strings(keys)
	for _, h := range keys {
		fn(h, x.byHeader[h])
	}
}

// Progress receives notifications as commands are scanned. Implementations
// must tolerate concurrent OnCommandScanned calls.
type Progress interface {
	OnAssociationStart(totalCommands int)
	OnCommandScanned(source string)
	OnAssociationDone(totalHeaders int)
}

// NopProgress is a Progress that does nothing.
type NopProgress struct{}

func (NopProgress) OnAssociationStart(int)    {}
func (NopProgress) OnCommandScanned(string)   {}
func (NopProgress) OnAssociationDone(int)     {}

// Options configures Build.
type Options struct {
	// Workers bounds the scan worker pool. Values below 1 mean 1.
	Workers int
	// KeepHeader optionally filters discovered headers before association
	// (e.g. dropping pure system headers). Nil keeps everything.
	KeepHeader func(header string) bool
	// Progress reports scan progress. Nil means silent.
	Progress Progress
}

// Build discovers headers for every command and assembles the association
// index.
//
// Discovery runs on a bounded worker pool; each worker produces an
// independent per-command result, and results are folded into the map
// sequentially in the fixed lexical order, never overwriting an existing
// assignment. That keeps parallel runs exactly as reproducible as serial
// ones without a contended lock around the map.
//
// Per-command failures (unrecognized depfiles, scan timeouts) are
// warnings, not errors: partial coverage beats total failure.
func Build(ctx context.Context, cmds []*canonical.Command, strat Strategy, opts Options) *Index {
	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	// Fixed resolution order: lexical by source path, ties broken by output
	// file so two compilations of one source stay ordered.
	ordered := make([]*canonical.Command, len(cmds))
	copy(ordered, cmds)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SourceFile != ordered[j].SourceFile {
			return ordered[i].SourceFile < ordered[j].SourceFile
		}
		return ordered[i].OutputFile < ordered[j].OutputFile
	})

	progress.OnAssociationStart(len(ordered))

	results := make([][]string, len(ordered))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = discover(ctx, ordered[i], strat)
				progress.OnCommandScanned(ordered[i].SourceFile)
			}
		}()
	}
	for i := range ordered {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	idx := &Index{byHeader: make(map[string]*canonical.Command)}
	for i, cmd := range ordered {
		for _, header := range results[i] {
			if opts.KeepHeader != nil && !opts.KeepHeader(header) {
				continue
			}
			if _, taken := idx.byHeader[header]; !taken {
				idx.byHeader[header] = cmd
			}
		}
	}

	progress.OnAssociationDone(idx.Len())
	return idx
}

func discover(ctx context.Context, cmd *canonical.Command, strat Strategy) []string {
	// Non-preprocessed assembly can't include headers.
	if canonical.IsAssemblySource(cmd.SourceFile) {
		return nil
	}

	headers, err := strat.Headers(ctx, cmd)
	if err != nil {
		var timeout *ScanTimeout
		if errors.As(err, &timeout) {
			log.Printf("Warning: %v; continuing without its headers", timeout)
		} else {
			log.Printf("Warning: failed to discover headers for %s: %v", cmd.SourceFile, err)
		}
		return nil
	}
	return headers
}
