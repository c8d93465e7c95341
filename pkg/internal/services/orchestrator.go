package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// FeedOrchestrator owns the canonical post list. Per snapshot it maps every
// record, warms up all referenced author profiles and only then replaces the
// list and clears the loading flag, so the first paint already carries
// author names and avatars.
type FeedOrchestrator struct {
	source       FeedSource
	mapper       *PostMapper
	profiles     *ProfileCache
	bus          *EventBus
	interactions *InteractionController
	list         *PostList
	userID       string

	loading atomic.Bool

	mu       sync.Mutex
	lastErr  error
	sub      *FeedSubscription
	busToken string
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewFeedOrchestrator(
	source FeedSource,
	mapper *PostMapper,
	profiles *ProfileCache,
	bus *EventBus,
	store InteractionStore,
	userID string,
) *FeedOrchestrator {
	list := NewPostList()
	orchestrator := &FeedOrchestrator{
		source:       source,
		mapper:       mapper,
		profiles:     profiles,
		bus:          bus,
		interactions: NewInteractionController(store, bus, list, userID),
		list:         list,
		userID:       userID,
	}
	orchestrator.loading.Store(true)
	return orchestrator
}

// Start opens the push channel and begins applying snapshots in delivery
// order. It does not block; teardown goes through Close.
func (o *FeedOrchestrator) Start(ctx context.Context) error {
	sub, err := o.source.Subscribe(FeedFilter{
		PublicOnly: true,
		OrderBy:    "upload_date_time DESC",
	})
	if err != nil {
		return fmt.Errorf("unable to subscribe to feed source: %v", err)
	}

	token, err := o.bus.Subscribe(o.reconcile)
	if err != nil {
		sub.Unsubscribe()
		return fmt.Errorf("unable to subscribe to event bus: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.mu.Lock()
	o.sub = sub
	o.busToken = token
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	go o.run(ctx, sub, done)
	return nil
}

func (o *FeedOrchestrator) run(ctx context.Context, sub *FeedSubscription, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				if err := sub.Err(); err != nil {
					log.Error().Err(err).Msg("Feed subscription ended with a transport error.")
					o.fail(err)
				}
				return
			}
			o.applySnapshot(ctx, snap)
		}
	}
}

func (o *FeedOrchestrator) applySnapshot(ctx context.Context, snap Snapshot) {
	posts := lo.Map(snap.Records, func(record Record, _ int) models.Post {
		return o.mapper.Map(record)
	})
	posts = lo.Filter(posts, func(post models.Post, _ int) bool {
		return len(post.ID) > 0
	})
	posts = lo.UniqBy(posts, func(post models.Post) string {
		return post.ID
	})

	authorIDs := lo.Map(posts, func(post models.Post, _ int) string {
		return post.AuthorID
	})
	resolved := o.profiles.ResolveAll(ctx, authorIDs)
	for idx := range posts {
		if profile, ok := resolved[posts[idx].AuthorID]; ok {
			posts[idx].Author = lo.ToPtr(profile)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].UploadedAt.After(posts[j].UploadedAt)
	})

	// Profile fan-out may have outlived a teardown; never touch the list
	// once the orchestrator is cancelled.
	if ctx.Err() != nil {
		return
	}

	o.list.Replace(posts)
	o.interactions.Prune(lo.Map(posts, func(post models.Post, _ int) string {
		return post.ID
	}))
	o.loading.Store(false)

	log.Debug().Int("posts", len(posts)).Int("authors", len(resolved)).Msg("Applied feed snapshot.")
}

func (o *FeedOrchestrator) reconcile(event models.PostEvent) {
	// Posts absent from this copy are ignored on purpose.
	o.list.Update(event.PostID, func(post *models.Post) {
		event.ApplyTo(post, o.userID)
	})
}

func (o *FeedOrchestrator) fail(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	o.list.Replace(nil)
	o.loading.Store(false)
}

// Posts returns the canonical ordering, newest first.
func (o *FeedOrchestrator) Posts() []models.Post {
	return o.list.Snapshot()
}

func (o *FeedOrchestrator) Post(id string) (models.Post, bool) {
	return o.list.Get(id)
}

func (o *FeedOrchestrator) IsLoading() bool {
	return o.loading.Load()
}

// Err reports the terminal subscription error, if any. Recovery is a fresh
// Start on a new orchestrator, not an automatic retry.
func (o *FeedOrchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *FeedOrchestrator) ToggleLike(ctx context.Context, postID string) error {
	return o.interactions.ToggleLike(ctx, postID)
}

func (o *FeedOrchestrator) AddComment(ctx context.Context, postID, content string) error {
	return o.interactions.AddComment(ctx, postID, content)
}

// Close tears the orchestrator down deterministically: the push channel is
// released, the bus subscription removed, and no deferred write can land
// afterwards.
func (o *FeedOrchestrator) Close() {
	o.mu.Lock()
	cancel, sub, token, done := o.cancel, o.sub, o.busToken, o.done
	o.cancel, o.sub, o.busToken, o.done = nil, nil, "", nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if len(token) > 0 {
		o.bus.Unsubscribe(token)
	}
	if done != nil {
		<-done
	}
}
