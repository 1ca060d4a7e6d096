package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/query"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cursor is the keyset pagination key: the (created_at, id) pair of the last
// row of the previous page. created_at alone is not unique, so id breaks
// ties deterministically.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// PostKey is the restricted projection used by select-all traversals:
// identifier and cursor key only, no media join.
type PostKey struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes store contents.
type Stats struct {
	Posts     int `json:"posts"`
	Originals int `json:"originals"`
	Reposts   int `json:"reposts"`
	Replies   int `json:"replies"`
	Media     int `json:"media"`
}

// Store is the persistence interface.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	CountPosts(ctx context.Context, f query.Filter) (int, error)
	ListPosts(ctx context.Context, f query.Filter, cursor *Cursor, limit int) ([]archive.Post, error)
	ListPostKeys(ctx context.Context, f query.Filter, cursor *Cursor, limit int) ([]PostKey, error)
	MediaForPosts(ctx context.Context, postIDs []string) (map[string][]archive.Media, error)

	Stats(ctx context.Context) (Stats, error)
	Reset(ctx context.Context) error
	Close() error
}

// Tx is a write transaction used by the bulk loader. Posts must be inserted
// before the media that references them.
type Tx interface {
	InsertPosts(ctx context.Context, posts []archive.Post) error
	InsertMedia(ctx context.Context, media []archive.Media) error
	Commit() error
	Rollback() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and creates the schema.
func New(path string) (*SQLiteStore, error) {
	dsn := path + "?_time_format=sqlite&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset drops both tables, the search index and its triggers, then recreates
// the schema from scratch.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, dropAll); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("recreate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sqlx.Tx
}

func (t *sqliteTx) InsertPosts(ctx context.Context, posts []archive.Post) error {
	if len(posts) == 0 {
		return nil
	}
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO posts (id, text, repost_count, like_count, kind, created_at)
		VALUES (:id, :text, :repost_count, :like_count, :kind, :created_at)
	`, posts)
	if err != nil {
		return fmt.Errorf("insert %d posts: %w", len(posts), err)
	}
	return nil
}

func (t *sqliteTx) InsertMedia(ctx context.Context, media []archive.Media) error {
	if len(media) == 0 {
		return nil
	}
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO media (id, post_id, preview_url, kind)
		VALUES (:id, :post_id, :preview_url, :kind)
	`, media)
	if err != nil {
		return fmt.Errorf("insert %d media: %w", len(media), err)
	}
	return nil
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

// CountPosts returns the exact number of rows matching the filter, ignoring
// any cursor.
func (s *SQLiteStore) CountPosts(ctx context.Context, f query.Filter) (int, error) {
	q := "SELECT COUNT(*) FROM posts WHERE 1=1"
	var args []any
	if cond, condArgs := f.Predicate(); cond != "" {
		q += " AND " + cond
		args = append(args, condArgs...)
	}

	var n int
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// ListPosts returns one page of posts matching the filter, ordered by
// (created_at DESC, id DESC), with media attached.
func (s *SQLiteStore) ListPosts(ctx context.Context, f query.Filter, cursor *Cursor, limit int) ([]archive.Post, error) {
	q, args := buildSelect("SELECT id, text, repost_count, like_count, kind, created_at FROM posts", f, cursor, limit)

	var posts []archive.Post
	if err := s.db.SelectContext(ctx, &posts, q, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	byPost, err := s.MediaForPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Media = byPost[posts[i].ID]
	}
	return posts, nil
}

// ListPostKeys is ListPosts restricted to the cursor-key projection.
func (s *SQLiteStore) ListPostKeys(ctx context.Context, f query.Filter, cursor *Cursor, limit int) ([]PostKey, error) {
	q, args := buildSelect("SELECT id, created_at FROM posts", f, cursor, limit)

	var keys []PostKey
	if err := s.db.SelectContext(ctx, &keys, q, args...); err != nil {
		return nil, fmt.Errorf("list post keys: %w", err)
	}
	return keys, nil
}

// MediaForPosts fetches attachments for the given post ids, grouped by post.
func (s *SQLiteStore) MediaForPosts(ctx context.Context, postIDs []string) (map[string][]archive.Media, error) {
	if len(postIDs) == 0 {
		return map[string][]archive.Media{}, nil
	}

	q, args, err := sqlx.In("SELECT id, post_id, preview_url, kind FROM media WHERE post_id IN (?)", postIDs)
	if err != nil {
		return nil, fmt.Errorf("build media query: %w", err)
	}

	var media []archive.Media
	if err := s.db.SelectContext(ctx, &media, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	byPost := make(map[string][]archive.Media, len(postIDs))
	for _, m := range media {
		byPost[m.PostID] = append(byPost[m.PostID], m)
	}
	return byPost, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := s.db.QueryxContext(ctx, "SELECT kind, COUNT(*) FROM posts GROUP BY kind")
	if err != nil {
		return stats, fmt.Errorf("count posts by kind: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return stats, err
		}
		stats.Posts += n
		switch archive.PostKind(kind) {
		case archive.KindRepost:
			stats.Reposts = n
		case archive.KindReply:
			stats.Replies = n
		default:
			stats.Originals = n
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if err := s.db.GetContext(ctx, &stats.Media, "SELECT COUNT(*) FROM media"); err != nil {
		return stats, fmt.Errorf("count media: %w", err)
	}
	return stats, nil
}

// buildSelect composes the shared filtered, cursored, ordered select. The
// ordering is fixed so cursor continuation stays well-defined across calls.
func buildSelect(base string, f query.Filter, cursor *Cursor, limit int) (string, []any) {
	q := base + " WHERE 1=1"
	var args []any

	if cond, condArgs := f.Predicate(); cond != "" {
		q += " AND " + cond
		args = append(args, condArgs...)
	}
	if cursor != nil {
		q += " AND (created_at < ? OR (created_at = ? AND id < ?))"
		cu := cursor.CreatedAt.UTC()
		args = append(args, cu, cu, cursor.ID)
	}

	q += " ORDER BY created_at DESC, id DESC"

	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	return q, args
}
