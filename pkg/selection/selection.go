// Package selection accumulates "select all matching" identifiers by driving
// the paginator across pages, up to a hard cap, cancellable by generation
// token when the filter changes mid-flight.
package selection

import (
	"context"
	"errors"

	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/paginate"
	"github.com/bgwastu/deletex/pkg/query"
)

const (
	// DefaultCap is the hard ceiling on accumulated identifiers. Hitting it
	// is a documented truncation, not an error: the caller sees the count
	// and reports it to the user.
	DefaultCap = 500

	// traversalPageSize is the internal page size for the restricted
	// projection. Much larger than display pages since no media is joined.
	traversalPageSize = 2000
)

// ErrStale reports that the filter state changed while a traversal was in
// flight. The traversal's partial results must be discarded; a stale
// traversal never overwrites newer selection state.
var ErrStale = errors.New("selection superseded by newer filter state")

// Progress receives the partial selected-id set after each page so the
// caller can render "N of M selected" before completion. ids must not be
// retained across calls.
type Progress func(ids []string, total int)

// Tracker runs select-all traversals.
type Tracker struct {
	paginator  *paginate.Paginator
	generation func() uint64
	cap        int
}

// New creates a tracker. generation is sampled when a traversal starts and
// re-checked every iteration; a nil generation disables staleness checks.
// maxSelected <= 0 selects DefaultCap.
func New(p *paginate.Paginator, generation func() uint64, maxSelected int) *Tracker {
	if maxSelected <= 0 {
		maxSelected = DefaultCap
	}
	return &Tracker{paginator: p, generation: generation, cap: maxSelected}
}

// Cap returns the configured selection ceiling.
func (t *Tracker) Cap() int { return t.cap }

// SelectAll accumulates the identifiers of all posts matching the filter, in
// (created_at, id) descending order, stopping at the cap or at exhaustion.
// Because the ordering is fixed, truncation at the cap always keeps the cap
// most-recent matching items.
//
// An in-flight store call is allowed to complete, but its result is
// discarded with ErrStale if the generation moved while it ran.
func (t *Tracker) SelectAll(ctx context.Context, f query.Filter, progress Progress) ([]string, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}

	gen := t.snapshot()

	total, err := t.paginator.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if t.stale(gen) {
		return nil, 0, ErrStale
	}

	seen := make(map[string]struct{})
	var ids []string
	var cursor *store.Cursor

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		keys, next, err := t.paginator.Keys(ctx, f, cursor, traversalPageSize)
		if err != nil {
			return nil, 0, err
		}
		if t.stale(gen) {
			return nil, 0, ErrStale
		}

		for _, k := range keys {
			if _, ok := seen[k.ID]; ok {
				continue
			}
			seen[k.ID] = struct{}{}
			ids = append(ids, k.ID)
			if len(ids) >= t.cap {
				if progress != nil {
					progress(ids, total)
				}
				return ids, total, nil
			}
		}

		if progress != nil {
			progress(ids, total)
		}
		if next == nil || len(keys) == 0 {
			return ids, total, nil
		}
		cursor = next
	}
}

func (t *Tracker) snapshot() uint64 {
	if t.generation == nil {
		return 0
	}
	return t.generation()
}

func (t *Tracker) stale(gen uint64) bool {
	return t.generation != nil && t.generation() != gen
}
