package remote

import (
	"time"

	"github.com/athlink/feedengine/pkg/internal/services"
	jsoniter "github.com/json-iterator/go"
	"gorm.io/datatypes"
)

// PostRecord is one document in the remote posts collection. The statistics
// payload stays schemaless because two incompatible shapes coexist in the
// wild; decoding them is PostMapper's job.
type PostRecord struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Visibility     bool      `json:"visibility" gorm:"index"`
	UploadDateTime time.Time `json:"uploadDateTime" gorm:"index"`
	AuthorID       string    `json:"authorId"`
	Caption        string    `json:"caption"`
	URL            string    `json:"url"`
	ThumbnailURL   string    `json:"thumbnailURL"`

	LikeCount    int                         `json:"likeCount"`
	LikedBy      datatypes.JSONSlice[string] `json:"likedBy"`
	CommentCount int                         `json:"commentCount"`

	PerformanceFeedback datatypes.JSON `json:"performanceFeedback"`
}

// AsRecord converts the row into the raw document shape the stream contract
// emits, using the collection's field names.
func (r PostRecord) AsRecord() services.Record {
	var stats any
	if len(r.PerformanceFeedback) > 0 {
		_ = jsoniter.Unmarshal(r.PerformanceFeedback, &stats)
	}

	return services.Record{
		"id":                  r.ID,
		"visibility":          r.Visibility,
		"uploadDateTime":      r.UploadDateTime,
		"authorId":            r.AuthorID,
		"caption":             r.Caption,
		"url":                 r.URL,
		"thumbnailURL":        r.ThumbnailURL,
		"likeCount":           r.LikeCount,
		"likedBy":             []string(r.LikedBy),
		"commentCount":        r.CommentCount,
		"performanceFeedback": stats,
	}
}

// CommentRecord is one row in the comments table, keyed to its parent post.
// The feed only surfaces the per-post counter; the bodies are kept for the
// detail surfaces that read them.
type CommentRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"postId" gorm:"index"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileRecord is one document in the remote author profiles collection.
// Position, physical attributes and contact-visibility flags live in a
// nested detail document.
type ProfileRecord struct {
	ID         string `json:"id" gorm:"primaryKey"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	ProfilePic string `json:"profilePic"`
	DOB        string `json:"dob"`

	Details datatypes.JSONMap `json:"details"`
}
