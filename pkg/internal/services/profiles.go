package services

import (
	"context"
	"fmt"
	"sync"

	localCache "github.com/athlink/feedengine/pkg/internal/cache"
	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

// ProfileFetcher loads one author profile from the remote profiles
// collection.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id string) (models.AuthorProfile, error)
}

// ProfileCache memoizes author profiles. Concurrent resolves of the same id
// are coalesced into a single underlying fetch; a failed fetch is not cached,
// so the next reference retries it.
type ProfileCache struct {
	fetcher ProfileFetcher
	images  *ImageResolver
	flight  singleflight.Group
	marshal *marshaler.Marshaler
}

func NewProfileCache(fetcher ProfileFetcher, images *ImageResolver) *ProfileCache {
	cacheManager := cache.New[any](localCache.S)
	return &ProfileCache{
		fetcher: fetcher,
		images:  images,
		marshal: marshaler.New(cacheManager),
	}
}

func profileCacheKey(id string) string {
	return fmt.Sprintf("author-profile#%s", id)
}

func (c *ProfileCache) Resolve(ctx context.Context, id string) (models.AuthorProfile, error) {
	key := profileCacheKey(id)
	if cached, err := c.marshal.Get(ctx, key, new(models.AuthorProfile)); err == nil {
		return *(cached.(*models.AuthorProfile)), nil
	}

	resolved, err, _ := c.flight.Do(id, func() (any, error) {
		profile, err := c.fetcher.FetchProfile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch author profile %s: %v", id, err)
		}

		if c.images != nil {
			profile.AvatarURL = c.images.Resolve(ctx, profile.AvatarURL)
		}

		_ = c.marshal.Set(
			ctx,
			key,
			profile,
			store.WithCost(1),
			store.WithTags([]string{"author-profile"}),
		)

		return profile, nil
	})
	if err != nil {
		return models.AuthorProfile{}, err
	}

	return resolved.(models.AuthorProfile), nil
}

// ResolveAll fans out one coalesced resolve per distinct id and returns once
// all of them settled. Ids that failed to resolve are simply absent from the
// result; they do not fail the batch.
func (c *ProfileCache) ResolveAll(ctx context.Context, ids []string) map[string]models.AuthorProfile {
	ids = lo.Filter(lo.Uniq(ids), func(id string, _ int) bool {
		return len(id) > 0
	})

	var mu sync.Mutex
	var wg sync.WaitGroup
	resolved := make(map[string]models.AuthorProfile, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			profile, err := c.Resolve(ctx, id)
			if err != nil {
				log.Warn().Err(err).Str("author", id).Msg("An error occurred when resolving author profile...")
				return
			}
			mu.Lock()
			resolved[id] = profile
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return resolved
}
