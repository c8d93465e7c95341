package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInteractionStore struct {
	mu          sync.Mutex
	likeCommits []bool
	comments    []string
	failLike    bool
	delay       time.Duration
}

func (f *fakeInteractionStore) CommitLike(_ context.Context, _, _ string, liked bool) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLike {
		return fmt.Errorf("remote store unavailable")
	}
	f.likeCommits = append(f.likeCommits, liked)
	return nil
}

func (f *fakeInteractionStore) CommitComment(_ context.Context, _, _, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, content)
	return nil
}

func (f *fakeInteractionStore) storedComments() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.comments...)
}

func (f *fakeInteractionStore) commits() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.likeCommits...)
}

func seededList() *PostList {
	list := NewPostList()
	list.Replace([]models.Post{{
		ID:        "p1",
		AuthorID:  "a1",
		LikeCount: 5,
		LikedBy:   []string{"u2", "u3"},
	}})
	return list
}

func TestToggleLikeAppliesOptimistically(t *testing.T) {
	store := &fakeInteractionStore{}
	bus := NewEventBus()
	defer bus.Close()
	list := seededList()
	controller := NewInteractionController(store, bus, list, "u1")

	var mu sync.Mutex
	var events []models.PostEvent
	_, err := bus.Subscribe(func(event models.PostEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	require.NoError(t, err)

	require.NoError(t, controller.ToggleLike(context.Background(), "p1"))

	post, ok := list.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 6, post.LikeCount)
	assert.Contains(t, post.LikedBy, "u1")
	assert.True(t, post.IsLiked)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, events[0].LikeUpdate)
	assert.Equal(t, "p1", events[0].PostID)
	assert.True(t, events[0].LikeUpdate.IsLiked)
	assert.Equal(t, 6, events[0].LikeUpdate.NewCount)
}

func TestToggleLikeRollsBackOnCommitFailure(t *testing.T) {
	store := &fakeInteractionStore{failLike: true}
	bus := NewEventBus()
	defer bus.Close()
	list := seededList()
	controller := NewInteractionController(store, bus, list, "u1")

	var mu sync.Mutex
	var events []models.PostEvent
	_, err := bus.Subscribe(func(event models.PostEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	require.NoError(t, err)

	before, ok := list.Get("p1")
	require.True(t, ok)

	require.Error(t, controller.ToggleLike(context.Background(), "p1"))

	after, ok := list.Get("p1")
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, 5, after.LikeCount)
	assert.Equal(t, []string{"u2", "u3"}, after.LikedBy)
	assert.False(t, after.IsLiked)

	// No event escapes a failed commit.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, events)
}

func TestToggleLikeOnUnknownPost(t *testing.T) {
	store := &fakeInteractionStore{}
	bus := NewEventBus()
	defer bus.Close()
	controller := NewInteractionController(store, bus, NewPostList(), "u1")

	assert.Error(t, controller.ToggleLike(context.Background(), "ghost"))
	assert.Empty(t, store.commits())
}

func TestRapidTogglesOnSamePostAreSerialized(t *testing.T) {
	store := &fakeInteractionStore{delay: 20 * time.Millisecond}
	bus := NewEventBus()
	defer bus.Close()
	list := seededList()
	controller := NewInteractionController(store, bus, list, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = controller.ToggleLike(context.Background(), "p1")
		}()
	}
	wg.Wait()

	// The second toggle observed the first one's apply, so the pair nets out.
	post, ok := list.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 5, post.LikeCount)
	assert.Equal(t, []string{"u2", "u3"}, post.LikedBy)
	assert.False(t, post.IsLiked)

	assert.Equal(t, []bool{true, false}, store.commits())
}

func TestAddCommentCommitsAndAnnounces(t *testing.T) {
	store := &fakeInteractionStore{}
	bus := NewEventBus()
	defer bus.Close()
	list := seededList()
	controller := NewInteractionController(store, bus, list, "u1")

	var mu sync.Mutex
	var events []models.PostEvent
	_, err := bus.Subscribe(func(event models.PostEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	require.NoError(t, err)

	require.NoError(t, controller.AddComment(context.Background(), "p1", "great touch"))
	assert.Error(t, controller.AddComment(context.Background(), "ghost", "lost"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0].CommentAdded
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"great touch"}, store.storedComments())
}

func TestUnlikeFromZeroKeepsCountNonNegative(t *testing.T) {
	store := &fakeInteractionStore{}
	bus := NewEventBus()
	defer bus.Close()

	// A corrupted remote count maps to 0 while the current user stays in
	// likedBy, so the next toggle is an unlike starting from 0.
	mapper := NewPostMapper("u1", nil)
	list := NewPostList()
	list.Replace([]models.Post{mapper.Map(Record{
		"id":        "p1",
		"likeCount": -3,
		"likedBy":   []any{"u1"},
	})})
	controller := NewInteractionController(store, bus, list, "u1")

	require.NoError(t, controller.ToggleLike(context.Background(), "p1"))

	post, ok := list.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 0, post.LikeCount)
	assert.False(t, post.IsLiked)
	assert.Empty(t, post.LikedBy)
	assert.Equal(t, []bool{false}, store.commits())
}

func TestPruneDropsLocksForDepartedPosts(t *testing.T) {
	store := &fakeInteractionStore{}
	bus := NewEventBus()
	defer bus.Close()
	list := seededList()
	controller := NewInteractionController(store, bus, list, "u1")

	require.NoError(t, controller.ToggleLike(context.Background(), "p1"))
	controller.mu.Lock()
	assert.Len(t, controller.locks, 1)
	controller.mu.Unlock()

	// p1 left the feed; its idle lock goes with it.
	controller.Prune([]string{"p2"})
	controller.mu.Lock()
	assert.Empty(t, controller.locks)
	controller.mu.Unlock()
}
