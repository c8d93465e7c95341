package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// InteractionStore commits interaction mutations against the remote posts
// collection. CommitLike must be atomic on the remote side: a counter
// increment of ±1 plus a set add/remove of the user id.
type InteractionStore interface {
	CommitLike(ctx context.Context, postID, userID string, liked bool) error
	CommitComment(ctx context.Context, postID, userID, content string) error
}

// InteractionController implements optimistic like toggles: apply locally,
// commit remotely, roll back the exact local mutation on failure. Toggles on
// the same post are serialized through a per-post lock so the second caller
// always observes the first one's settled outcome; toggles on different
// posts proceed concurrently.
type InteractionController struct {
	store  InteractionStore
	bus    *EventBus
	list   *PostList
	userID string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewInteractionController(store InteractionStore, bus *EventBus, list *PostList, userID string) *InteractionController {
	return &InteractionController{
		store:  store,
		bus:    bus,
		list:   list,
		userID: userID,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (c *InteractionController) postLock(postID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lock, ok := c.locks[postID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	c.locks[postID] = lock
	return lock
}

// Prune drops per-post locks for posts no longer in the feed, keeping the
// lock map proportional to the current snapshot. A lock currently held by an
// in-flight toggle stays; the next sweep picks it up once it settles.
func (c *InteractionController) Prune(keep []string) {
	ids := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		ids[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, lock := range c.locks {
		if _, ok := ids[id]; ok {
			continue
		}
		if lock.TryLock() {
			lock.Unlock()
			delete(c.locks, id)
		}
	}
}

func (c *InteractionController) ToggleLike(ctx context.Context, postID string) error {
	lock := c.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	var target bool
	var newCount, prevCount int
	var prevLiked bool
	var prevLikedBy []string
	if ok := c.list.Update(postID, func(post *models.Post) {
		prevCount = post.LikeCount
		prevLiked = post.IsLiked
		prevLikedBy = append([]string(nil), post.LikedBy...)

		target = !post.IsLiked
		applyLike(post, c.userID, target)
		newCount = post.LikeCount
	}); !ok {
		return fmt.Errorf("post %s is not in the feed", postID)
	}

	if err := c.store.CommitLike(ctx, postID, c.userID, target); err != nil {
		// Restore the exact like state from before the optimistic apply,
		// not a refetch. Other fields keep whatever happened meanwhile.
		c.list.Update(postID, func(post *models.Post) {
			post.LikeCount = prevCount
			post.IsLiked = prevLiked
			post.LikedBy = prevLikedBy
		})
		return fmt.Errorf("unable to commit like on post %s: %v", postID, err)
	}

	if err := c.bus.Publish(models.PostEvent{
		PostID:     postID,
		LikeUpdate: &models.LikeUpdate{IsLiked: target, NewCount: newCount},
	}); err != nil {
		log.Warn().Err(err).Str("post", postID).Msg("An error occurred when publishing like event...")
	}

	return nil
}

// AddComment persists the comment body and the counter increment remotely,
// then announces the increment on the bus; holders (this feed included)
// reconcile their own copies from the event.
func (c *InteractionController) AddComment(ctx context.Context, postID, content string) error {
	if _, ok := c.list.Get(postID); !ok {
		return fmt.Errorf("post %s is not in the feed", postID)
	}

	if err := c.store.CommitComment(ctx, postID, c.userID, content); err != nil {
		return fmt.Errorf("unable to commit comment on post %s: %v", postID, err)
	}

	if err := c.bus.Publish(models.PostEvent{PostID: postID, CommentAdded: true}); err != nil {
		log.Warn().Err(err).Str("post", postID).Msg("An error occurred when publishing comment event...")
	}

	return nil
}

func applyLike(post *models.Post, userID string, liked bool) {
	if liked {
		post.LikeCount++
		if !lo.Contains(post.LikedBy, userID) {
			post.LikedBy = append(post.LikedBy, userID)
		}
	} else {
		// A remote count that arrived already corrupted maps to 0 with the
		// user still in likedBy; unliking from there must not go negative.
		if post.LikeCount > 0 {
			post.LikeCount--
		}
		post.LikedBy = lo.Without(post.LikedBy, userID)
	}
	post.IsLiked = liked
}
