package archive_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `window.YTD.tweets.part0 = [
  {
    "tweet": {
      "id_str": "100",
      "full_text": "hello world",
      "retweet_count": "3",
      "favorite_count": "7",
      "created_at": "Wed Oct 10 20:19:24 +0000 2018",
      "extended_entities": {
        "media": [
          {"id_str": "m1", "media_url_https": "https://pbs.example/m1.jpg", "type": "photo"},
          {"id_str": "m2", "media_url_https": "https://pbs.example/m2.mp4", "type": "video"}
        ]
      }
    }
  },
  {
    "tweet": {
      "id_str": "101",
      "full_text": "RT @someone: reposted content",
      "retweet_count": "0",
      "favorite_count": "0",
      "created_at": "Thu Oct 11 08:00:00 +0000 2018"
    }
  },
  {
    "tweet": {
      "id_str": "102",
      "full_text": "RT @someone: replying anyway",
      "retweet_count": "1",
      "favorite_count": "2",
      "in_reply_to_status_id_str": "99",
      "created_at": "Thu Oct 11 09:30:00 +0000 2018",
      "extended_entities": {
        "media": [
          {"id_str": "m3", "media_url_https": "https://pbs.example/m3.gif", "type": "animated_gif"},
          {"id_str": "m4", "media_url_https": "https://pbs.example/m4.bin", "type": "slideshow"}
        ]
      }
    }
  }
]`

func TestParse(t *testing.T) {
	posts, err := archive.Parse([]byte(samplePayload))
	require.NoError(t, err)
	require.Len(t, posts, 3)

	first := posts[0]
	assert.Equal(t, "100", first.ID)
	assert.Equal(t, "hello world", first.Text)
	assert.Equal(t, 3, first.RepostCount)
	assert.Equal(t, 7, first.LikeCount)
	assert.Equal(t, archive.KindOriginal, first.Kind)
	assert.Equal(t, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC), first.CreatedAt)

	require.Len(t, first.Media, 2)
	assert.Equal(t, "m1", first.Media[0].ID)
	assert.Equal(t, "100", first.Media[0].PostID)
	assert.Equal(t, archive.MediaPhoto, first.Media[0].Kind)
	assert.Equal(t, archive.MediaVideo, first.Media[1].Kind)
}

func TestParseClassification(t *testing.T) {
	posts, err := archive.Parse([]byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, archive.KindRepost, posts[1].Kind)

	// An explicit in-reply-to reference wins over the repost text marker.
	assert.Equal(t, archive.KindReply, posts[2].Kind)
}

func TestParseUnrecognizedMediaType(t *testing.T) {
	posts, err := archive.Parse([]byte(samplePayload))
	require.NoError(t, err)

	media := posts[2].Media
	require.Len(t, media, 2)
	assert.Equal(t, archive.MediaAnimated, media[0].Kind)
	// Unknown declared type falls back to photo.
	assert.Equal(t, archive.MediaPhoto, media[1].Kind)
}

func TestParseRejectsMissingPrefix(t *testing.T) {
	_, err := archive.Parse([]byte(`[{"tweet": {"id_str": "1"}}]`))

	var malformed *archive.MalformedArchiveError
	require.True(t, errors.As(err, &malformed))
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := archive.Parse([]byte(`window.YTD.tweets.part0 = [{"tweet": `))

	var malformed *archive.MalformedArchiveError
	require.True(t, errors.As(err, &malformed))
}

func TestParseRejectsEmptyPayload(t *testing.T) {
	_, err := archive.Parse([]byte(`window.YTD.tweets.part0 = `))

	var malformed *archive.MalformedArchiveError
	require.True(t, errors.As(err, &malformed))
}

func TestParseRejectsBadTimestampAtomically(t *testing.T) {
	payload := `window.YTD.tweets.part0 = [
	  {"tweet": {"id_str": "1", "full_text": "ok", "retweet_count": "0", "favorite_count": "0", "created_at": "Wed Oct 10 20:19:24 +0000 2018"}},
	  {"tweet": {"id_str": "2", "full_text": "bad", "retweet_count": "0", "favorite_count": "0", "created_at": "not a date"}}
	]`

	posts, err := archive.Parse([]byte(payload))
	var malformed *archive.MalformedArchiveError
	require.True(t, errors.As(err, &malformed))
	// Never partial results.
	assert.Nil(t, posts)
}

func TestSummarize(t *testing.T) {
	posts, err := archive.Parse([]byte(samplePayload))
	require.NoError(t, err)

	s := archive.Summarize(posts)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Originals)
	assert.Equal(t, 1, s.Reposts)
	assert.Equal(t, 1, s.Replies)
	assert.Equal(t, 4, s.Media)
}
