package service

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
)

// CredentialTTL is how long a cached widget credential may be trusted
// before mandatory re-verification against the store.
const CredentialTTL = 5 * time.Minute

// credCacheSize bounds the cache; one entry per distinct API key seen.
const credCacheSize = 4096

type cachedCredential struct {
	key        domain.APIKey
	insertedAt time.Time
}

// credCache is a bounded, time-expiring credential cache. Entries are
// replaced whole, never mutated in place. Staleness is decided by
// comparing the stored insertion timestamp against the injected clock at
// read time, so tests can drive expiry with a fake clock; the LRU's own
// expiry only bounds memory for abandoned keys.
type credCache struct {
	lru *lru.LRU[string, cachedCredential]
	ttl time.Duration
	now func() time.Time
}

func newCredCache(ttl time.Duration, now func() time.Time) *credCache {
	return &credCache{
		lru: lru.NewLRU[string, cachedCredential](credCacheSize, nil, 2*ttl),
		ttl: ttl,
		now: now,
	}
}

func (c *credCache) get(apiKey string) (domain.APIKey, bool) {
	entry, ok := c.lru.Get(apiKey)
	if !ok {
		return domain.APIKey{}, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		return domain.APIKey{}, false
	}
	return entry.key, true
}

func (c *credCache) put(k domain.APIKey) {
	c.lru.Add(k.Key, cachedCredential{key: k, insertedAt: c.now()})
}
