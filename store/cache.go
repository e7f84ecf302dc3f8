package store

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/willf/bloom"
)

// BalanceCache keeps recently read balances close to the API surface. The
// Bloom filter front-loads the common miss: most queried addresses have
// never held tokens, and those never touch the LRU at all.
type BalanceCache struct {
	cache       *lru.Cache[string, int64]
	bloomFilter *bloom.BloomFilter
	mutex       sync.RWMutex
}

// NewBalanceCache creates a balance cache holding up to size entries, with
// a Bloom filter sized for expectedItems at the given false-positive rate.
func NewBalanceCache(size int, expectedItems uint, falsePositiveRate float64) (*BalanceCache, error) {
	c, err := lru.New[string, int64](size)
	if err != nil {
		return nil, err
	}
	bf := bloom.NewWithEstimates(expectedItems, falsePositiveRate)
	return &BalanceCache{cache: c, bloomFilter: bf}, nil
}

// Get retrieves a cached balance for the address.
func (c *BalanceCache) Get(addr string) (int64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if !c.bloomFilter.TestString(addr) {
		return 0, false
	}
	return c.cache.Get(addr)
}

// Put stores a balance for the address.
func (c *BalanceCache) Put(addr string, balance int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.bloomFilter.AddString(addr)
	c.cache.Add(addr, balance)
}

// Invalidate drops the cached entry for the address. The Bloom filter keeps
// its bit; the next Get falls through to the ledger.
func (c *BalanceCache) Invalidate(addr string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Remove(addr)
}

// Purge clears all cached balances.
func (c *BalanceCache) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Purge()
	c.bloomFilter.ClearAll()
}
