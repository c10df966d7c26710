package llm

import (
	"context"
	"time"

	"github.com/ppiankov/narrascan/internal/cache"
)

// Waiter blocks until a request for key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

type rateLimited struct {
	Provider
	waiter Waiter
}

// RateLimited wraps p so every Generate call first waits on w, keyed by provider name
func RateLimited(p Provider, w Waiter) Provider {
	if w == nil {
		return p
	}
	return &rateLimited{Provider: p, waiter: w}
}

func (r *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.waiter.Wait(ctx, r.Provider.Name()); err != nil {
		return "", err
	}
	return r.Provider.Generate(ctx, prompt)
}

type cached struct {
	Provider
	cache cache.Cache
	ttl   time.Duration
}

// Cached wraps p with a response cache keyed by provider, model and prompt.
// Only successful replies are stored.
func Cached(p Provider, c cache.Cache, ttl time.Duration) Provider {
	if c == nil {
		return p
	}
	return &cached{Provider: p, cache: c, ttl: ttl}
}

func (c *cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := cache.Key(c.Provider.Name(), c.Provider.Model(), prompt)
	if data, ok := c.cache.Get(key); ok {
		return string(data), nil
	}

	out, err := c.Provider.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	// A failed write only costs a future cache miss
	_ = c.cache.Set(key, []byte(out), c.ttl)
	return out, nil
}
