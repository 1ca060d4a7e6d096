package archive

import "time"

// PostKind classifies an imported post. Computed once at parse time and
// immutable afterwards.
type PostKind string

const (
	KindOriginal PostKind = "original"
	KindRepost   PostKind = "repost"
	KindReply    PostKind = "reply"
)

// MediaKind identifies the media type of an attachment.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaAnimated MediaKind = "animated"
)

// Post is one imported content item.
type Post struct {
	ID          string    `json:"id" db:"id"`
	Text        string    `json:"text" db:"text"`
	RepostCount int       `json:"repost_count" db:"repost_count"`
	LikeCount   int       `json:"like_count" db:"like_count"`
	Kind        PostKind  `json:"kind" db:"kind"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Media       []Media   `json:"media,omitempty" db:"-"`
}

// Media is one attachment belonging to a post.
type Media struct {
	ID         string    `json:"id" db:"id"`
	PostID     string    `json:"post_id" db:"post_id"`
	PreviewURL string    `json:"preview_url" db:"preview_url"`
	Kind       MediaKind `json:"kind" db:"kind"`
}

// AllPostKinds returns every known post kind.
func AllPostKinds() []PostKind {
	return []PostKind{KindOriginal, KindRepost, KindReply}
}

// Summary breaks a parsed archive down by kind.
type Summary struct {
	Total     int `json:"total"`
	Originals int `json:"originals"`
	Reposts   int `json:"reposts"`
	Replies   int `json:"replies"`
	Media     int `json:"media"`
}

// Summarize counts posts by kind plus total media references.
func Summarize(posts []Post) Summary {
	var s Summary
	s.Total = len(posts)
	for i := range posts {
		switch posts[i].Kind {
		case KindRepost:
			s.Reposts++
		case KindReply:
			s.Replies++
		default:
			s.Originals++
		}
		s.Media += len(posts[i].Media)
	}
	return s
}
