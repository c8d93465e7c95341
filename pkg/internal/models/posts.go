package models

import (
	"time"

	"github.com/samber/lo"
)

// StatEntry is one performance statistic shown on a post, such as ("PASS", 9, 10).
type StatEntry struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	MaxValue float64 `json:"max_value"`
}

// Post is the normalized feed entity assembled from a raw remote record.
// IsLiked mirrors membership of the current user in LikedBy; the two may
// transiently diverge from the remote-confirmed state during an optimistic
// update, but never from each other.
type Post struct {
	ID           string `json:"id"`
	AuthorID     string `json:"author_id"`
	Caption      string `json:"caption"`
	Language     string `json:"language"`
	MediaURL     string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`

	UploadedAt time.Time `json:"uploaded_at"`
	Private    bool      `json:"private"`

	LikeCount    int      `json:"like_count"`
	LikedBy      []string `json:"liked_by"`
	IsLiked      bool     `json:"is_liked"`
	CommentCount int      `json:"comment_count"`

	Stats []StatEntry `json:"stats"`

	Author *AuthorProfile `json:"author,omitempty"`
}

// Clone returns a deep copy safe to hand out to readers.
func (p Post) Clone() Post {
	p.LikedBy = append([]string(nil), p.LikedBy...)
	p.Stats = append([]StatEntry(nil), p.Stats...)
	if p.Author != nil {
		author := *p.Author
		p.Author = &author
	}
	return p
}

func (p Post) HasLiked(userID string) bool {
	return lo.Contains(p.LikedBy, userID)
}
