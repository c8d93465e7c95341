package models

import "github.com/samber/lo"

// LikeUpdate carries the absolute like state after a confirmed commit.
type LikeUpdate struct {
	IsLiked  bool `json:"is_liked"`
	NewCount int  `json:"new_count"`
}

// PostEvent lets independent holders of the same post reconcile state changes
// without a shared store or a refetch.
type PostEvent struct {
	PostID       string      `json:"post_id"`
	LikeUpdate   *LikeUpdate `json:"like_update,omitempty"`
	CommentAdded bool        `json:"comment_added,omitempty"`
}

// ApplyTo reconciles the event into a locally held copy of the post.
// Like updates overwrite with absolute values, so redelivering the same
// event is a no-op after the first application. Comment events are a single
// increment because the wire contract only carries a flag.
func (e PostEvent) ApplyTo(post *Post, currentUserID string) {
	if e.LikeUpdate != nil {
		post.LikeCount = e.LikeUpdate.NewCount
		post.IsLiked = e.LikeUpdate.IsLiked
		if e.LikeUpdate.IsLiked {
			if !lo.Contains(post.LikedBy, currentUserID) {
				post.LikedBy = append(post.LikedBy, currentUserID)
			}
		} else {
			post.LikedBy = lo.Without(post.LikedBy, currentUserID)
		}
	}
	if e.CommentAdded {
		post.CommentCount++
	}
}
