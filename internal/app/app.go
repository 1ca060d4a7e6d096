// Package app owns the top-level controller: an explicit state machine over
// the archive lifecycle, the current filter state, and the generation counter
// that cancels stale long-running reads.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bgwastu/deletex/internal/loader"
	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/paginate"
	"github.com/bgwastu/deletex/pkg/query"
	"github.com/bgwastu/deletex/pkg/script"
	"github.com/bgwastu/deletex/pkg/selection"
)

// State is the archive lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateImporting     State = "importing"
	StateReady         State = "ready"
)

// StateError reports an operation attempted in the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// App coordinates the store, loader, paginator and selection tracker.
// State transitions are atomic from the consumer's point of view: all state
// reads and writes happen under one mutex, between store round-trips.
type App struct {
	store     store.Store
	loader    *loader.Loader
	paginator *paginate.Paginator
	tracker   *selection.Tracker

	// generation is bumped on every filter or search change. Long-running
	// reads capture it at start and discard their results if it moved.
	generation atomic.Uint64

	mu       sync.Mutex
	state    State
	filter   query.Filter
	selected []string
}

// New creates the controller. The initial state is Ready when the store
// already holds posts, Uninitialized otherwise.
func New(ctx context.Context, s store.Store, batchSize, selectionCap int) (*App, error) {
	a := &App{
		store:     s,
		loader:    loader.New(s, batchSize),
		paginator: paginate.New(s),
		state:     StateUninitialized,
	}
	a.tracker = selection.New(a.paginator, a.generation.Load, selectionCap)

	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect store: %w", err)
	}
	if stats.Posts > 0 {
		a.state = StateReady
	}
	return a, nil
}

// State returns the current lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Filter returns the currently applied filter.
func (a *App) Filter() query.Filter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filter
}

// Import parses the raw payload and loads it into the store. The parse is
// pure; nothing is written unless the whole payload parses. The load runs in
// one transaction, so a failed import leaves the store untouched.
func (a *App) Import(ctx context.Context, payload []byte) (archive.Summary, error) {
	a.mu.Lock()
	if a.state == StateImporting {
		a.mu.Unlock()
		return archive.Summary{}, &StateError{Op: "import", State: a.state}
	}
	prev := a.state
	a.state = StateImporting
	a.mu.Unlock()

	posts, err := archive.Parse(payload)
	if err != nil {
		a.setState(prev)
		return archive.Summary{}, err
	}

	if err := a.loader.Load(ctx, posts); err != nil {
		a.setState(prev)
		return archive.Summary{}, err
	}

	a.setState(StateReady)
	return archive.Summarize(posts), nil
}

// ApplyFilter makes f the current filter, invalidates in-flight traversals,
// clears the selection, and returns the first page.
func (a *App) ApplyFilter(ctx context.Context, f query.Filter, pageSize int) (*paginate.Result, error) {
	if err := a.requireReady("filter"); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.filter = f
	a.selected = nil
	a.mu.Unlock()
	a.generation.Add(1)

	return a.paginator.Page(ctx, f, nil, pageSize)
}

// Page continues pagination under the current filter.
func (a *App) Page(ctx context.Context, cursor *store.Cursor, pageSize int) (*paginate.Result, error) {
	if err := a.requireReady("paginate"); err != nil {
		return nil, err
	}
	return a.paginator.Page(ctx, a.Filter(), cursor, pageSize)
}

// SelectAll traverses every post matching the current filter, up to the
// tracker's cap, and records the result as the selection state. A traversal
// made stale by a filter change never overwrites newer selection state.
func (a *App) SelectAll(ctx context.Context, progress selection.Progress) ([]string, int, error) {
	if err := a.requireReady("select"); err != nil {
		return nil, 0, err
	}

	gen := a.generation.Load()
	ids, total, err := a.tracker.SelectAll(ctx, a.Filter(), progress)
	if err != nil {
		return nil, 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation.Load() != gen {
		return nil, 0, selection.ErrStale
	}
	a.selected = ids
	return ids, total, nil
}

// Toggle adds or removes a single id from the selection.
func (a *App) Toggle(id string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, sel := range a.selected {
		if sel == id {
			a.selected = append(a.selected[:i], a.selected[i+1:]...)
			return a.selected
		}
	}
	a.selected = append(a.selected, id)
	return a.selected
}

// Selection returns the current ordered selection.
func (a *App) Selection() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.selected))
	copy(out, a.selected)
	return out
}

// ClearSelection empties the selection state.
func (a *App) ClearSelection() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = nil
}

// Script renders the deletion script over the current selection. Only post
// identifiers cross this boundary.
func (a *App) Script() (string, error) {
	ids := a.Selection()
	if len(ids) == 0 {
		return "", fmt.Errorf("nothing selected")
	}
	return script.Generate(ids)
}

// Reset drops and recreates the schema, returning to Uninitialized.
func (a *App) Reset(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateImporting {
		a.mu.Unlock()
		return &StateError{Op: "reset", State: a.state}
	}
	a.mu.Unlock()

	if err := a.store.Reset(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.state = StateUninitialized
	a.filter = query.Filter{}
	a.selected = nil
	a.mu.Unlock()
	a.generation.Add(1)
	return nil
}

// Stats reports store contents.
func (a *App) Stats(ctx context.Context) (store.Stats, error) {
	return a.store.Stats(ctx)
}

func (a *App) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *App) requireReady(op string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateReady {
		return &StateError{Op: op, State: a.state}
	}
	return nil
}
