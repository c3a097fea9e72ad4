package rates

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const snapshotKey = "rates:snapshot"

// RedisCache persists rate snapshots in Redis so a restarted process can
// reuse the last good table within its TTL instead of refetching or falling
// back to defaults. Cache failures are logged and otherwise ignored; the
// provider works without it.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Load(ctx context.Context) (Snapshot, bool) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("load rate snapshot from redis", "error", err)
		}
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.log.Warn("decode cached rate snapshot", "error", err)
		return Snapshot{}, false
	}
	return snap, true
}

func (c *RedisCache) Store(ctx context.Context, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.log.Warn("encode rate snapshot", "error", err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.log.Warn("store rate snapshot in redis", "error", err)
	}
}

var _ SnapshotCache = (*RedisCache)(nil)
