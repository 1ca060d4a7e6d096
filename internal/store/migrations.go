package store

// schema is the fixed on-disk contract. There is no incremental migration
// path: Reset drops everything and re-runs this from scratch.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id           TEXT PRIMARY KEY,
    text         TEXT NOT NULL DEFAULT '',
    repost_count INTEGER NOT NULL DEFAULT 0,
    like_count   INTEGER NOT NULL DEFAULT 0,
    kind         TEXT NOT NULL CHECK (kind IN ('original', 'repost', 'reply')),
    created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_kind ON posts(kind);
CREATE INDEX IF NOT EXISTS idx_posts_cursor ON posts(created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS media (
    id          TEXT PRIMARY KEY,
    post_id     TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE ON UPDATE CASCADE,
    preview_url TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL DEFAULT 'photo'
);

CREATE INDEX IF NOT EXISTS idx_media_post ON media(post_id);

CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
    text,
    content='posts',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS posts_fts_insert AFTER INSERT ON posts BEGIN
    INSERT INTO posts_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS posts_fts_delete AFTER DELETE ON posts BEGIN
    INSERT INTO posts_fts(posts_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;
`

const dropAll = `
DROP TRIGGER IF EXISTS posts_fts_insert;
DROP TRIGGER IF EXISTS posts_fts_delete;
DROP TABLE IF EXISTS posts_fts;
DROP TABLE IF EXISTS media;
DROP TABLE IF EXISTS posts;
`
