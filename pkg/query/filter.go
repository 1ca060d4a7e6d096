// Package query turns declarative filter specifications into SQL predicates
// for the post store.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/bgwastu/deletex/pkg/archive"
)

// Filter is a declarative filter specification. Zero-value fields impose no
// constraint; present fields are combined with logical AND.
type Filter struct {
	Kinds         []archive.PostKind `json:"kinds,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
	MinLikes      *int               `json:"min_likes,omitempty"`
	MaxLikes      *int               `json:"max_likes,omitempty"`
	MinReposts    *int               `json:"min_reposts,omitempty"`
	MaxReposts    *int               `json:"max_reposts,omitempty"`
	RequireMedia  bool               `json:"require_media,omitempty"`
	SearchText    string             `json:"search_text,omitempty"`
}

// ValidationError reports a self-contradictory filter specification. It is
// raised before any store round-trip.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter: %s: %s", e.Field, e.Reason)
}

// Validate rejects inverted ranges before query execution.
func (f Filter) Validate() error {
	if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedAfter.After(*f.CreatedBefore) {
		return &ValidationError{Field: "created_after", Reason: "lower bound is after upper bound"}
	}
	if f.MinLikes != nil && f.MaxLikes != nil && *f.MinLikes > *f.MaxLikes {
		return &ValidationError{Field: "min_likes", Reason: "lower bound exceeds upper bound"}
	}
	if f.MinReposts != nil && f.MaxReposts != nil && *f.MinReposts > *f.MaxReposts {
		return &ValidationError{Field: "min_reposts", Reason: "lower bound exceeds upper bound"}
	}
	return nil
}

// Predicate renders the filter as a SQL condition over the posts table plus
// its bind arguments. Absent options contribute no clause; an unconstrained
// filter returns an empty condition.
func (f Filter) Predicate() (string, []any) {
	var conds []string
	var args []any

	if len(f.Kinds) > 0 {
		ph := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			ph[i] = "?"
			args = append(args, k)
		}
		conds = append(conds, fmt.Sprintf("posts.kind IN (%s)", strings.Join(ph, ", ")))
	}
	if f.CreatedAfter != nil {
		conds = append(conds, "posts.created_at >= ?")
		args = append(args, f.CreatedAfter.UTC())
	}
	if f.CreatedBefore != nil {
		conds = append(conds, "posts.created_at <= ?")
		args = append(args, f.CreatedBefore.UTC())
	}
	if f.MinLikes != nil {
		conds = append(conds, "posts.like_count >= ?")
		args = append(args, *f.MinLikes)
	}
	if f.MaxLikes != nil {
		conds = append(conds, "posts.like_count <= ?")
		args = append(args, *f.MaxLikes)
	}
	if f.MinReposts != nil {
		conds = append(conds, "posts.repost_count >= ?")
		args = append(args, *f.MinReposts)
	}
	if f.MaxReposts != nil {
		conds = append(conds, "posts.repost_count <= ?")
		args = append(args, *f.MaxReposts)
	}
	if f.RequireMedia {
		conds = append(conds, "EXISTS (SELECT 1 FROM media WHERE media.post_id = posts.id)")
	}
	if q := strings.TrimSpace(f.SearchText); q != "" {
		conds = append(conds, "posts.rowid IN (SELECT rowid FROM posts_fts WHERE posts_fts MATCH ?)")
		args = append(args, MatchExpr(q))
	}

	return strings.Join(conds, " AND "), args
}

// IsZero reports whether the filter imposes any constraint at all.
func (f Filter) IsZero() bool {
	cond, _ := f.Predicate()
	return cond == ""
}

// MatchExpr converts free text into a full-text match expression: each token
// is quoted so user input is matched literally, tokens are implicitly ANDed.
func MatchExpr(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
