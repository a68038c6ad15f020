package application

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/meeting-scheduler/internal/meeting"
)

const (
	defaultCacheTTL        = 30 * time.Second
	defaultCacheMaxEntries = 128
)

// queryCache stores recent List results keyed by the canonical filter so
// repeated queries skip the scan while the collection is unchanged.
type queryCache struct {
	lru *expirable.LRU[string, []*meeting.Meeting]
}

func newQueryCache(ttl time.Duration, maxEntries int) *queryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &queryCache{lru: expirable.NewLRU[string, []*meeting.Meeting](maxEntries, nil, ttl)}
}

func (c *queryCache) Get(key string) ([]*meeting.Meeting, bool) {
	if c == nil {
		return nil, false
	}
	cached, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneMeetings(cached), true
}

func (c *queryCache) Store(key string, meetings []*meeting.Meeting) {
	if c == nil {
		return
	}
	c.lru.Add(key, cloneMeetings(meetings))
}

func (c *queryCache) Invalidate() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *queryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
