package bazel

import (
	"context"
	"errors"
	"sync"

	"github.com/mvp-joe/bazel-compdb/internal/config"
)

// Ingest queries compile actions for every configured (target, flags) pair
// and merges the results in configuration order. Queries for independent
// flag sets are side-effect-free reads and run concurrently, bounded by
// maxParallel so the bazel server isn't overloaded.
//
// The first QueryError aborts the whole ingestion: without a complete action
// graph the output could not be trusted.
func Ingest(ctx context.Context, client *Client, specs []config.TargetSpec, excludeExternal bool, extraArgs []string, maxParallel int) ([]Action, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([][]Action, len(specs))
	errs := make([]error, len(specs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec config.TargetSpec) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			actions, err := client.CompileActions(ctx, spec.Target, spec.Flags, spec.Group, excludeExternal, extraArgs)
			if err != nil {
				errs[i] = err
				cancel() // no point finishing the other queries
				return
			}
			results[i] = actions
		}(i, spec)
	}
	wg.Wait()

	// Surface the first error in configuration order, so failures are
	// reported deterministically regardless of scheduling. Cancellations are
	// only a consequence of some other query failing, so real errors win.
	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var merged []Action
	for _, actions := range results {
		merged = append(merged, actions...)
	}
	return merged, nil
}
