package redis

import (
	"context"
	"time"

	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore mirrors the online set into a ZSET scored by the sync
// time, so readers can tell how fresh an entry is.
type RedisPresenceStore struct {
	rdb *redis.Client
	key string
}

var _ contracts.PresenceMirror = (*RedisPresenceStore)(nil)

func NewRedisPresenceStore(rdb *redis.Client, key string) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
		key: key,
	}
}

// Sync atomically replaces the mirrored set.
func (p *RedisPresenceStore) Sync(
	ctx context.Context,
	entries []domain.PresenceEntry,
	ttl time.Duration, // "inactivity threshold"
) error {
	now := float64(time.Now().Unix())
	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{Score: now, Member: e.Identity.String()})
	}
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(members) == 0 {
			return nil
		}
		pipe.ZAdd(ctx, p.key, members...)
		// Expire the whole set so it doesn't outlive a dead relay.
		pipe.Expire(ctx, p.key, ttl)
		return nil
	})
	return err
}

func (p *RedisPresenceStore) Online(ctx context.Context) ([]string, error) {
	return p.rdb.ZRange(ctx, p.key, 0, -1).Result()
}

func (p *RedisPresenceStore) Clear(ctx context.Context) error {
	return p.rdb.Del(ctx, p.key).Err()
}
