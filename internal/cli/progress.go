package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// refreshProgress implements headers.Progress with a progress bar over the
// header-association phase, the only part of a refresh slow enough to need
// one.
type refreshProgress struct {
	quiet bool
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
}

func newRefreshProgress(quiet bool) *refreshProgress {
	return &refreshProgress{quiet: quiet}
}

func (p *refreshProgress) OnAssociationStart(totalCommands int) {
	if p.quiet || totalCommands == 0 {
		return
	}
	p.bar = progressbar.NewOptions(totalCommands,
		progressbar.OptionSetDescription("Associating headers"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// OnCommandScanned is called from scan workers concurrently.
func (p *refreshProgress) OnCommandScanned(source string) {
	if p.quiet || p.bar == nil {
		return
	}
	p.mu.Lock()
	p.bar.Add(1)
	p.mu.Unlock()
}

func (p *refreshProgress) OnAssociationDone(totalHeaders int) {
	if p.quiet {
		return
	}
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	fmt.Printf("✓ Associated %d header(s)\n", totalHeaders)
}
