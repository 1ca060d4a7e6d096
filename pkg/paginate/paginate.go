// Package paginate serves keyset-paginated queries over the post store.
//
// Pages are ordered by (created_at DESC, id DESC) and continued from the
// cursor key of the last row seen, never from a numeric offset, so results
// do not shift when the underlying set grows between reads.
package paginate

import (
	"context"

	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/query"
)

// DefaultPageSize is used when the caller does not request a size.
const DefaultPageSize = 20

// QueryError reports a store failure on a well-formed read. Reads have no
// side effects, so retrying the same call is safe.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query failed: " + e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }

// Result is one page of posts.
type Result struct {
	Posts []archive.Post `json:"posts"`
	// Total is the exact count of rows matching the filter, ignoring the
	// cursor, so the consumer can display progress and detect exhaustion.
	Total int `json:"total"`
	// Next is absent when this page exhausts the result set.
	Next *store.Cursor `json:"next,omitempty"`
}

// Paginator executes filtered, cursored page reads.
type Paginator struct {
	store store.Store
}

// New creates a paginator over the given store.
func New(s store.Store) *Paginator {
	return &Paginator{store: s}
}

// Page fetches one page of posts with media attached. The filter is
// validated before anything reaches the store.
func (p *Paginator) Page(ctx context.Context, f query.Filter, cursor *store.Cursor, pageSize int) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total, err := p.store.CountPosts(ctx, f)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	posts, err := p.store.ListPosts(ctx, f, cursor, pageSize)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	res := &Result{Posts: posts, Total: total}
	if len(posts) == pageSize {
		last := posts[len(posts)-1]
		res.Next = &store.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return res, nil
}

// Count returns the exact number of rows matching the filter.
func (p *Paginator) Count(ctx context.Context, f query.Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	total, err := p.store.CountPosts(ctx, f)
	if err != nil {
		return 0, &QueryError{Err: err}
	}
	return total, nil
}

// Keys fetches one page in the restricted projection (id and cursor key
// only, no media join, no count). Used by select-all traversals.
func (p *Paginator) Keys(ctx context.Context, f query.Filter, cursor *store.Cursor, pageSize int) ([]store.PostKey, *store.Cursor, error) {
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	keys, err := p.store.ListPostKeys(ctx, f, cursor, pageSize)
	if err != nil {
		return nil, nil, &QueryError{Err: err}
	}

	var next *store.Cursor
	if len(keys) == pageSize {
		last := keys[len(keys)-1]
		next = &store.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return keys, next, nil
}
