package auth

import (
	"context"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// KeySetFetcher returns the signing keys for identity tokens.
type KeySetFetcher func(ctx context.Context) (jwk.Set, error)

// keyCache holds a provider's JWKS for ttl before fetching it again.
type keyCache struct {
	fetch KeySetFetcher
	ttl   time.Duration

	mu        sync.Mutex
	keys      jwk.Set
	fetchedAt time.Time
}

func newKeyCache(url string, timeout time.Duration) *keyCache {
	return &keyCache{
		ttl: time.Hour,
		fetch: func(ctx context.Context) (jwk.Set, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return jwk.Fetch(ctx, url)
		},
	}
}

func (c *keyCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.keys, nil
	}
	set, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.keys = set
	c.fetchedAt = time.Now()
	return set, nil
}
