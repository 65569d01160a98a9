package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of events into one. Each arrival supersedes the
// previous pending one; only the arrival that survives the quiet period wins.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	// cancel is closed to abort the currently pending waiter.
	cancel chan struct{}
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Wait blocks for the quiet period and reports whether this caller survived
// it. A newer Wait or Schedule cancels the pending one, in which case Wait
// returns false immediately. Context cancellation also returns false.
func (d *Debouncer) Wait(ctx context.Context) bool {
	d.mu.Lock()
	if d.cancel != nil {
		close(d.cancel)
	}
	mine := make(chan struct{})
	d.cancel = mine
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-mine:
		return false
	case <-ctx.Done():
		d.release(mine)
		return false
	case <-timer.C:
		d.release(mine)
		return true
	}
}

// Schedule runs fn after the quiet period unless superseded first.
func (d *Debouncer) Schedule(fn func()) {
	go func() {
		if d.Wait(context.Background()) {
			fn()
		}
	}()
}

// Stop cancels any pending waiter without scheduling a replacement.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		close(d.cancel)
		d.cancel = nil
	}
	d.mu.Unlock()
}

func (d *Debouncer) release(mine chan struct{}) {
	d.mu.Lock()
	if d.cancel == mine {
		d.cancel = nil
	}
	d.mu.Unlock()
}
