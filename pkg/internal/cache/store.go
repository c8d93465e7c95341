package cache

import (
	"github.com/dgraph-io/ristretto"
	ristrettoStore "github.com/eko/gocache/store/ristretto/v4"
	"github.com/spf13/viper"
)

var (
	R *ristretto.Cache
	S *ristrettoStore.RistrettoStore
)

// NewStore builds the shared in-process cache. Entries are stored with unit
// cost, so cache.max_cost effectively caps the number of cached entries and
// ristretto evicts the coldest ones beyond that.
func NewStore() error {
	if S != nil {
		return nil
	}

	maxCost := viper.GetInt64("cache.max_cost")
	if maxCost <= 0 {
		maxCost = 4096
	}

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return err
	}

	R = client
	S = ristrettoStore.NewRistretto(client)
	return nil
}
