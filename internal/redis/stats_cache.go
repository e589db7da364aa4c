package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

const statsKeyPrefix = "stats:"

// StatsCache is a short-lived JSON cache for the read-heavy stats endpoints.
// Clients poll, so staleness up to the TTL is acceptable; every session
// mutation invalidates eagerly anyway. A nil *StatsCache disables caching,
// so callers never need to branch on whether Redis is configured.
type StatsCache struct {
	client *Client
	ttl    time.Duration
}

func NewStatsCache(client *Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Key builds a stats cache key from its parts.
func Key(parts ...string) string {
	key := statsKeyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// Get unmarshals a cached view into dest and reports whether it was present.
// Cache errors degrade to a miss.
func (c *StatsCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stats cache: bad cached payload")
		return false
	}
	return true
}

func (c *StatsCache) Set(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stats cache: marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stats cache: set failed")
	}
}

// Invalidate drops every cached stats view.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, statsKeyPrefix+"*", 100).Result()
		if err != nil {
			log.Warn().Err(err).Msg("stats cache: scan failed")
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Err(err).Msg("stats cache: delete failed")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
