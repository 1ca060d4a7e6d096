package archive

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// payloadPrefix is the assignment wrapper the export puts in front of the
// JSON array. The match is exact; a payload without it is rejected outright.
var payloadPrefix = regexp.MustCompile(`^\s*window\.YTD\.tweets\.part0 = `)

// repostMarker is the conventional text prefix marking a repost.
const repostMarker = "RT @"

// createdAtLayout is the timestamp format used by the export.
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// MalformedArchiveError reports a payload that does not match the expected
// export shape. The import aborts before any store write.
type MalformedArchiveError struct {
	Reason string
	Err    error
}

func (e *MalformedArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed archive: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed archive: %s", e.Reason)
}

func (e *MalformedArchiveError) Unwrap() error { return e.Err }

// record is the wire shape of one array element.
type record struct {
	Tweet rawPost `json:"tweet"`
}

type rawPost struct {
	IDStr            string     `json:"id_str"`
	FullText         string     `json:"full_text"`
	RetweetCount     string     `json:"retweet_count"`
	FavoriteCount    string     `json:"favorite_count"`
	InReplyToStatus  *string    `json:"in_reply_to_status_id_str"`
	CreatedAt        string     `json:"created_at"`
	ExtendedEntities *rawEntity `json:"extended_entities"`
}

type rawEntity struct {
	Media []rawMedia `json:"media"`
}

type rawMedia struct {
	IDStr         string `json:"id_str"`
	MediaURLHTTPS string `json:"media_url_https"`
	Type          string `json:"type"`
}

// Parse converts the raw export payload into normalized posts with nested
// media. It is a pure transform: either the whole payload parses or it
// fails with *MalformedArchiveError, never returning partial results.
func Parse(payload []byte) ([]Post, error) {
	loc := payloadPrefix.FindIndex(payload)
	if loc == nil {
		return nil, &MalformedArchiveError{Reason: "missing export assignment prefix"}
	}

	body := payload[loc[1]:]
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &MalformedArchiveError{Reason: "empty payload"}
	}

	var records []record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &MalformedArchiveError{Reason: "invalid JSON array", Err: err}
	}

	posts := make([]Post, 0, len(records))
	for i := range records {
		post, err := normalize(&records[i].Tweet)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func normalize(raw *rawPost) (Post, error) {
	if raw.IDStr == "" {
		return Post{}, &MalformedArchiveError{Reason: "record without id"}
	}

	createdAt, err := time.Parse(createdAtLayout, raw.CreatedAt)
	if err != nil {
		return Post{}, &MalformedArchiveError{
			Reason: fmt.Sprintf("record %s has unparseable timestamp %q", raw.IDStr, raw.CreatedAt),
			Err:    err,
		}
	}

	reposts, err := parseCount(raw.RetweetCount)
	if err != nil {
		return Post{}, &MalformedArchiveError{
			Reason: fmt.Sprintf("record %s has invalid repost count %q", raw.IDStr, raw.RetweetCount),
			Err:    err,
		}
	}
	likes, err := parseCount(raw.FavoriteCount)
	if err != nil {
		return Post{}, &MalformedArchiveError{
			Reason: fmt.Sprintf("record %s has invalid like count %q", raw.IDStr, raw.FavoriteCount),
			Err:    err,
		}
	}

	post := Post{
		ID:          raw.IDStr,
		Text:        raw.FullText,
		RepostCount: reposts,
		LikeCount:   likes,
		Kind:        classify(raw),
		CreatedAt:   createdAt.UTC(),
	}

	if raw.ExtendedEntities != nil {
		for _, m := range raw.ExtendedEntities.Media {
			post.Media = append(post.Media, Media{
				ID:         m.IDStr,
				PostID:     post.ID,
				PreviewURL: m.MediaURLHTTPS,
				Kind:       mediaKind(m.Type),
			})
		}
	}

	return post, nil
}

// classify resolves the mutually exclusive post kind. An explicit in-reply-to
// reference wins over the repost text marker.
func classify(raw *rawPost) PostKind {
	if raw.InReplyToStatus != nil {
		return KindReply
	}
	if strings.HasPrefix(raw.FullText, repostMarker) {
		return KindRepost
	}
	return KindOriginal
}

// mediaKind maps the export's media type strings. Unrecognized types fall
// back to photo, matching the export's documented behavior.
func mediaKind(t string) MediaKind {
	switch t {
	case "photo":
		return MediaPhoto
	case "video":
		return MediaVideo
	case "animated_gif":
		return MediaAnimated
	default:
		return MediaPhoto
	}
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}
