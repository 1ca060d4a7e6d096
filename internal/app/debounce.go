package app

import (
	"context"
	"sync"
	"time"

	"github.com/bgwastu/deletex/pkg/paginate"
)

// Debouncer coalesces a burst of calls into one invocation after a quiet
// period. Each call resets the timer; only the last function runs.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Do schedules fn, cancelling any previously scheduled call.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Search coalesces keystrokes, then updates the current filter's search text
// and fetches the first page. The result is delivered only if no newer
// filter or search event occurred while the query was in flight.
func (a *App) Search(ctx context.Context, d *Debouncer, text string, pageSize int, deliver func(*paginate.Result, error)) {
	d.Do(func() {
		a.mu.Lock()
		f := a.filter
		f.SearchText = text
		a.filter = f
		a.selected = nil
		a.mu.Unlock()
		gen := a.generation.Add(1)

		res, err := a.paginator.Page(ctx, f, nil, pageSize)
		if a.generation.Load() != gen {
			return
		}
		deliver(res, err)
	})
}
