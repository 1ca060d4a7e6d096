// Package loader persists parsed archives into the store: dedups media,
// splits inserts into bounded batches, and keeps parent-before-child order.
package loader

import (
	"context"
	"fmt"

	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/archive"
)

// DefaultBatchSize caps the row count of a single insert statement.
const DefaultBatchSize = 1000

// LoadError reports a failed import. The whole import runs in one
// transaction, so a failure leaves the store untouched.
type LoadError struct {
	Stage string // "posts" or "media"
	Batch int    // zero-based batch index
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("import failed at %s batch %d: %v", e.Stage, e.Batch, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader writes parsed archives to a store.
type Loader struct {
	store     store.Store
	batchSize int
}

// New creates a loader. batchSize <= 0 selects DefaultBatchSize.
func New(s store.Store, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{store: s, batchSize: batchSize}
}

// Load persists the parsed record set. All posts are inserted before any
// media so the foreign key always finds its parent; batches are submitted
// sequentially in input order inside a single transaction.
func (l *Loader) Load(ctx context.Context, posts []archive.Post) error {
	media := DedupMedia(posts)

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return &LoadError{Stage: "posts", Err: err}
	}
	defer tx.Rollback()

	for i, batch := range split(posts, l.batchSize) {
		if err := tx.InsertPosts(ctx, batch); err != nil {
			return &LoadError{Stage: "posts", Batch: i, Err: err}
		}
	}
	for i, batch := range split(media, l.batchSize) {
		if err := tx.InsertMedia(ctx, batch); err != nil {
			return &LoadError{Stage: "media", Batch: i, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &LoadError{Stage: "media", Err: err}
	}
	return nil
}

// DedupMedia flattens all attachments, keeping only the first occurrence of
// each media id in input order. One attachment id can appear on more than
// one post reference in the raw export, and the primary key requires it once.
func DedupMedia(posts []archive.Post) []archive.Media {
	seen := make(map[string]struct{})
	var out []archive.Media
	for i := range posts {
		for _, m := range posts[i].Media {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func split[T any](rows []T, size int) [][]T {
	var batches [][]T
	for len(rows) > 0 {
		n := min(size, len(rows))
		batches = append(batches, rows[:n])
		rows = rows[n:]
	}
	return batches
}
