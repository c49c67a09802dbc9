package cache

import (
	"sync"
	"time"

	"github.com/glotchimo/obras/internal/utils"
)

type localEntry struct {
	data    []byte
	expires time.Time
}

// LocalCache is the in-process tier checked before Redis. Every write made by
// this process lands here, so it never serves older data than Redis does.
// When full, the entry closest to expiry makes room.
type LocalCache struct {
	mu       sync.RWMutex
	entries  map[string]localEntry
	capacity int
	now      func() time.Time

	done chan struct{}
	once sync.Once
}

func NewLocalCache(capacity int, sweep time.Duration) *LocalCache {
	lc := &LocalCache{
		entries:  make(map[string]localEntry),
		capacity: capacity,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go utils.Sweep(lc.done, sweep, time.Now, lc.expire)
	return lc
}

func (lc *LocalCache) Get(key string) ([]byte, bool) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	e, ok := lc.entries[key]
	if !ok || !lc.now().Before(e.expires) {
		return nil, false
	}
	return e.data, true
}

func (lc *LocalCache) Set(key string, data []byte, ttl time.Duration) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if _, ok := lc.entries[key]; !ok && len(lc.entries) >= lc.capacity {
		delete(lc.entries, lc.soonest())
	}
	lc.entries[key] = localEntry{data: data, expires: lc.now().Add(ttl)}
}

func (lc *LocalCache) Delete(key string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	delete(lc.entries, key)
}

func (lc *LocalCache) Len() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.entries)
}

func (lc *LocalCache) Stop() {
	lc.once.Do(func() { close(lc.done) })
}

// soonest returns the key that expires first. lc.mu must be held.
func (lc *LocalCache) soonest() string {
	var key string
	var at time.Time
	for k, e := range lc.entries {
		if key == "" || e.expires.Before(at) {
			key, at = k, e.expires
		}
	}
	return key
}

func (lc *LocalCache) expire(now time.Time) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	for k, e := range lc.entries {
		if !now.Before(e.expires) {
			delete(lc.entries, k)
		}
	}
}
