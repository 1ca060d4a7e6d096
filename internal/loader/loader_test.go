package loader_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bgwastu/deletex/internal/loader"
	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makePosts(n int, mediaPer int) []archive.Post {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]archive.Post, n)
	for i := range posts {
		id := time.Duration(i)
		posts[i] = archive.Post{
			ID:        base.Add(id * time.Second).Format("20060102150405"),
			Text:      "post",
			Kind:      archive.KindOriginal,
			CreatedAt: base.Add(id * time.Second),
		}
		for m := 0; m < mediaPer; m++ {
			posts[i].Media = append(posts[i].Media, archive.Media{
				ID:     posts[i].ID + "-m" + string(rune('a'+m)),
				PostID: posts[i].ID,
				Kind:   archive.MediaPhoto,
			})
		}
	}
	return posts
}

func TestLoadCompleteness(t *testing.T) {
	s := newTestStore(t)
	posts := makePosts(25, 2)

	require.NoError(t, loader.New(s, 10).Load(context.Background(), posts))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Posts)
	assert.Equal(t, 50, stats.Media)
}

func TestLoadDedupsMediaWithinPayload(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	shared := archive.Media{ID: "m-shared", PreviewURL: "https://example/a.jpg", Kind: archive.MediaPhoto}

	a := archive.Post{ID: "1", Kind: archive.KindOriginal, CreatedAt: at}
	a.Media = []archive.Media{{ID: "m-shared", PostID: "1", PreviewURL: shared.PreviewURL, Kind: shared.Kind}}
	b := archive.Post{ID: "2", Kind: archive.KindOriginal, CreatedAt: at.Add(time.Second)}
	b.Media = []archive.Media{{ID: "m-shared", PostID: "2", PreviewURL: "https://example/b.jpg", Kind: archive.MediaVideo}}

	require.NoError(t, loader.New(s, 0).Load(context.Background(), []archive.Post{a, b}))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Media)

	// First occurrence in input order wins.
	byPost, err := s.MediaForPosts(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, byPost["1"], 1)
	assert.Empty(t, byPost["2"])
	assert.Equal(t, archive.MediaPhoto, byPost["1"][0].Kind)
}

func TestDedupMediaKeepsFirstSeenOrder(t *testing.T) {
	posts := []archive.Post{
		{ID: "1", Media: []archive.Media{{ID: "x", PostID: "1"}, {ID: "y", PostID: "1"}}},
		{ID: "2", Media: []archive.Media{{ID: "x", PostID: "2"}, {ID: "z", PostID: "2"}}},
	}

	media := loader.DedupMedia(posts)
	require.Len(t, media, 3)
	assert.Equal(t, "x", media[0].ID)
	assert.Equal(t, "1", media[0].PostID)
	assert.Equal(t, "y", media[1].ID)
	assert.Equal(t, "z", media[2].ID)
}

func TestLoadDuplicatePostIDRollsBackEverything(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	posts := []archive.Post{
		{ID: "1", Kind: archive.KindOriginal, CreatedAt: at},
		{ID: "2", Kind: archive.KindOriginal, CreatedAt: at},
		{ID: "1", Kind: archive.KindOriginal, CreatedAt: at},
	}

	// Batch size 1 so the duplicate fails in a later batch; the single
	// transaction still takes the earlier batches down with it.
	err := loader.New(s, 1).Load(context.Background(), posts)

	var loadErr *loader.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "posts", loadErr.Stage)

	n, err := s.CountPosts(context.Background(), query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadEmptyArchive(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, loader.New(s, 0).Load(context.Background(), nil))

	n, err := s.CountPosts(context.Background(), query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
