package services

import (
	"sync"
	"testing"
	"time"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusDeliversInPublishOrder(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var mu sync.Mutex
	var counts []int
	_, err := bus.Subscribe(func(event models.PostEvent) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, event.LikeUpdate.NewCount)
	})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, bus.Publish(models.PostEvent{
			PostID:     "p1",
			LikeUpdate: &models.LikeUpdate{IsLiked: true, NewCount: i},
		}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(counts) == 5
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, counts)
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var delivered sync.WaitGroup
	delivered.Add(1)
	var once sync.Once
	var mu sync.Mutex
	received := 0

	token, err := bus.Subscribe(func(event models.PostEvent) {
		mu.Lock()
		received++
		mu.Unlock()
		once.Do(delivered.Done)
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(models.PostEvent{PostID: "p1", CommentAdded: true}))
	delivered.Wait()

	bus.Unsubscribe(token)
	require.NoError(t, bus.Publish(models.PostEvent{PostID: "p1", CommentAdded: true}))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, received)
}

func TestLikeEventApplicationIsIdempotent(t *testing.T) {
	post := models.Post{
		ID:        "p1",
		LikeCount: 5,
		LikedBy:   []string{"u2", "u3"},
	}

	event := models.PostEvent{
		PostID:     "p1",
		LikeUpdate: &models.LikeUpdate{IsLiked: true, NewCount: 6},
	}

	event.ApplyTo(&post, "u1")
	afterFirst := post.Clone()

	// Redelivery of the same event must be a no-op.
	event.ApplyTo(&post, "u1")
	event.ApplyTo(&post, "u1")

	assert.Equal(t, afterFirst, post)
	assert.Equal(t, 6, post.LikeCount)
	assert.True(t, post.IsLiked)
	assert.True(t, lo.Contains(post.LikedBy, "u1"))
}

func TestUnlikeEventRemovesCurrentUser(t *testing.T) {
	post := models.Post{
		ID:        "p1",
		LikeCount: 6,
		LikedBy:   []string{"u2", "u1", "u3"},
		IsLiked:   true,
	}

	event := models.PostEvent{
		PostID:     "p1",
		LikeUpdate: &models.LikeUpdate{IsLiked: false, NewCount: 5},
	}
	event.ApplyTo(&post, "u1")

	assert.Equal(t, 5, post.LikeCount)
	assert.False(t, post.IsLiked)
	assert.Equal(t, []string{"u2", "u3"}, post.LikedBy)
}

func TestCommentEventIncrementsCounter(t *testing.T) {
	post := models.Post{ID: "p1", CommentCount: 2}

	event := models.PostEvent{PostID: "p1", CommentAdded: true}
	event.ApplyTo(&post, "u1")

	assert.Equal(t, 3, post.CommentCount)
}
