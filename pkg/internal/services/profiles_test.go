package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	localCache "github.com/athlink/feedengine/pkg/internal/cache"
	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
	delay    time.Duration
}

func newFakeProfileFetcher(delay time.Duration) *fakeProfileFetcher {
	return &fakeProfileFetcher{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		delay:    delay,
	}
}

func (f *fakeProfileFetcher) FetchProfile(_ context.Context, id string) (models.AuthorProfile, error) {
	f.mu.Lock()
	f.calls[id]++
	shouldFail := f.failures[id] > 0
	if shouldFail {
		f.failures[id]--
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if shouldFail {
		return models.AuthorProfile{}, fmt.Errorf("profile backend unavailable")
	}

	return models.AuthorProfile{
		ID:        id,
		FirstName: "Ada",
		LastName:  id,
	}, nil
}

func (f *fakeProfileFetcher) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestResolveCoalescesConcurrentCalls(t *testing.T) {
	require.NoError(t, localCache.NewStore())

	fetcher := newFakeProfileFetcher(20 * time.Millisecond)
	profiles := NewProfileCache(fetcher, nil)

	const concurrency = 8
	results := make([]models.AuthorProfile, concurrency)
	errs := make([]error, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = profiles.Resolve(context.Background(), "coalesce-author")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount("coalesce-author"))
	for i := 0; i < concurrency; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestResolveFailureIsNotCached(t *testing.T) {
	require.NoError(t, localCache.NewStore())

	fetcher := newFakeProfileFetcher(0)
	fetcher.failures["flaky-author"] = 1
	profiles := NewProfileCache(fetcher, nil)

	_, err := profiles.Resolve(context.Background(), "flaky-author")
	require.Error(t, err)

	// The failed attempt must stay retryable.
	profile, err := profiles.Resolve(context.Background(), "flaky-author")
	require.NoError(t, err)
	assert.Equal(t, "flaky-author", profile.ID)
	assert.Equal(t, 2, fetcher.callCount("flaky-author"))
}

func TestResolveAllSettlesDespiteFailures(t *testing.T) {
	require.NoError(t, localCache.NewStore())

	fetcher := newFakeProfileFetcher(5 * time.Millisecond)
	fetcher.failures["batch-broken"] = 1
	profiles := NewProfileCache(fetcher, nil)

	resolved := profiles.ResolveAll(context.Background(), []string{
		"batch-a", "batch-b", "batch-a", "batch-broken", "",
	})

	assert.Len(t, resolved, 2)
	assert.Contains(t, resolved, "batch-a")
	assert.Contains(t, resolved, "batch-b")
	assert.NotContains(t, resolved, "batch-broken")
	assert.Equal(t, 1, fetcher.callCount("batch-a"))
	assert.Equal(t, 1, fetcher.callCount("batch-b"))
}
