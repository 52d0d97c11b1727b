package compiledb

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// AcquireLock takes the per-workspace refresh lock, preventing two
// concurrent runs from racing on the same database files. The returned
// release function must be called when the run finishes.
func AcquireLock(outputDir string) (release func(), err error) {
	lock := flock.New(filepath.Join(outputDir, ".compdb.lock"))

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another refresh is already running in this workspace")
	}
	return func() { lock.Unlock() }, nil
}
