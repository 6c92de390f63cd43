package retrieval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/citeassist/engine/internal/domain"
)

// RedisCache is the C8 response cache: fingerprint -> JSON-encoded
// suggestion list, with a per-entry TTL. Grounded on redis/go-redis/v9,
// the same client the rest of the pack reaches for caching (seen alongside
// similar retrieval stacks in the example pack).
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client. keyPrefix namespaces cache keys,
// e.g. "citeassist:suggestions:".
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.Suggestion, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		// redis.Nil (miss) and any transport error both fall through to a
		// live computation; a cache miss never produces a wrong answer.
		return nil, false
	}
	var suggestions []domain.Suggestion
	if err := json.Unmarshal(raw, &suggestions); err != nil {
		return nil, false
	}
	return suggestions, true
}

func (c *RedisCache) Set(ctx context.Context, key string, suggestions []domain.Suggestion, ttl time.Duration) {
	raw, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, raw, ttl)
}
