package query_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func TestValidateInvertedRanges(t *testing.T) {
	t1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	cases := []struct {
		name  string
		f     query.Filter
		field string
	}{
		{"dates", query.Filter{CreatedAfter: &t2, CreatedBefore: &t1}, "created_after"},
		{"likes", query.Filter{MinLikes: intp(10), MaxLikes: intp(5)}, "min_likes"},
		{"reposts", query.Filter{MinReposts: intp(3), MaxReposts: intp(1)}, "min_reposts"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.f.Validate()
			var verr *query.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidateAcceptsEqualBounds(t *testing.T) {
	now := time.Now()
	f := query.Filter{
		CreatedAfter:  &now,
		CreatedBefore: &now,
		MinLikes:      intp(5),
		MaxLikes:      intp(5),
	}
	assert.NoError(t, f.Validate())
}

func TestPredicateEmptyFilter(t *testing.T) {
	cond, args := query.Filter{}.Predicate()
	assert.Empty(t, cond)
	assert.Empty(t, args)
	assert.True(t, query.Filter{}.IsZero())
}

func TestPredicateComposesWithAND(t *testing.T) {
	after := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	f := query.Filter{
		Kinds:        []archive.PostKind{archive.KindOriginal, archive.KindReply},
		CreatedAfter: &after,
		MinLikes:     intp(2),
		RequireMedia: true,
		SearchText:   "hello world",
	}

	cond, args := f.Predicate()
	assert.Equal(t, 4, strings.Count(cond, " AND "))
	assert.Contains(t, cond, "posts.kind IN (?, ?)")
	assert.Contains(t, cond, "posts.created_at >= ?")
	assert.Contains(t, cond, "posts.like_count >= ?")
	assert.Contains(t, cond, "EXISTS (SELECT 1 FROM media")
	assert.Contains(t, cond, "posts_fts MATCH ?")
	assert.Len(t, args, 5)
	assert.Equal(t, `"hello" "world"`, args[len(args)-1])
}

func TestPredicateEmptyKindSetIsUnrestricted(t *testing.T) {
	cond, _ := query.Filter{Kinds: []archive.PostKind{}}.Predicate()
	assert.NotContains(t, cond, "kind")
}

func TestPredicateBlankSearchDisabled(t *testing.T) {
	cond, _ := query.Filter{SearchText: "   "}.Predicate()
	assert.Empty(t, cond)
}

func TestMatchExprQuotesTokens(t *testing.T) {
	assert.Equal(t, `"hello"`, query.MatchExpr("hello"))
	assert.Equal(t, `"hello" "world"`, query.MatchExpr(" hello   world "))
	// Embedded quotes cannot break out of the quoted token.
	assert.Equal(t, `"he""llo"`, query.MatchExpr(`he"llo`))
}
