package services

import (
	localCache "github.com/athlink/feedengine/pkg/internal/cache"
	"github.com/rs/zerolog/log"
)

// DoAutoCacheMaintain reports profile cache health; wired into the cron
// scheduler at boot.
func DoAutoCacheMaintain() {
	if localCache.R == nil {
		return
	}

	metrics := localCache.R.Metrics
	log.Info().
		Uint64("hits", metrics.Hits()).
		Uint64("misses", metrics.Misses()).
		Uint64("keys_added", metrics.KeysAdded()).
		Uint64("keys_evicted", metrics.KeysEvicted()).
		Msg("Profile cache metrics collected.")
}
