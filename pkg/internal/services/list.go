package services

import (
	"sync"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/samber/lo"
)

// PostList is the canonical in-memory post ordering. Reads may happen from
// any goroutine; every mutation goes through one of the exclusive-write entry
// points below.
type PostList struct {
	mu    sync.RWMutex
	items []models.Post
}

func NewPostList() *PostList {
	return &PostList{}
}

// Replace swaps the whole list for a new snapshot-derived ordering.
func (l *PostList) Replace(items []models.Post) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
}

// Snapshot returns deep copies so callers can never mutate the canonical
// list behind its lock.
func (l *PostList) Snapshot() []models.Post {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Map(l.items, func(item models.Post, _ int) models.Post {
		return item.Clone()
	})
}

func (l *PostList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *PostList) Get(id string) (models.Post, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, item := range l.items {
		if item.ID == id {
			return item.Clone(), true
		}
	}
	return models.Post{}, false
}

// Update applies a mutation to the post with the given id while holding the
// write lock. It reports whether the post was present.
func (l *PostList) Update(id string, apply func(post *models.Post)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for idx := range l.items {
		if l.items[idx].ID == id {
			apply(&l.items[idx])
			return true
		}
	}
	return false
}
