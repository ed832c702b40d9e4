package handler

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// Defaults for the zone event list cache.
const (
	DefaultEventListCacheSize = 512
	DefaultEventListCacheTTL  = time.Second
)

// eventListCache holds recent EventList answers per zone instance. Clients poll the list
// on zone entry, so a short TTL absorbs login bursts without hiding progress for long.
type eventListCache struct {
	lru *expirable.LRU[domain.ZoneKey, []domain.EventListEntry]
}

func newEventListCache(size int, ttl time.Duration) *eventListCache {
	if size <= 0 {
		size = DefaultEventListCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultEventListCacheTTL
	}
	return &eventListCache{
		lru: expirable.NewLRU[domain.ZoneKey, []domain.EventListEntry](size, nil, ttl),
	}
}

func (c *eventListCache) Get(zone domain.ZoneKey) ([]domain.EventListEntry, bool) {
	return c.lru.Get(zone)
}

func (c *eventListCache) Set(zone domain.ZoneKey, entries []domain.EventListEntry) {
	c.lru.Add(zone, entries)
}

// Invalidate drops a zone's cached list after a write that changes it.
func (c *eventListCache) Invalidate(zone domain.ZoneKey) {
	c.lru.Remove(zone)
}
