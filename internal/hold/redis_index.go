package hold

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex keeps the expiry schedule in a Redis sorted set scored by the
// expiry time in Unix milliseconds.  Each server instance uses its own key
// so one instance never sweeps another's holds.
type RedisIndex struct {
	rdb *redis.Client
	key string
}

// NewRedisIndex returns an index stored under "<prefix>:<instance>".
func NewRedisIndex(rdb *redis.Client, prefix, instance string) *RedisIndex {
	if prefix == "" {
		prefix = "holds:expiry"
	}
	key := prefix
	if instance != "" {
		key = prefix + ":" + instance
	}
	return &RedisIndex{rdb: rdb, key: key}
}

// Key returns the sorted-set key.
func (r *RedisIndex) Key() string { return r.key }

func (r *RedisIndex) Schedule(ctx context.Context, holdID string, expiresAt time.Time) error {
	return r.rdb.ZAdd(ctx, r.key, redis.Z{
		Score:  float64(expiresAt.UnixMilli()),
		Member: holdID,
	}).Err()
}

func (r *RedisIndex) Remove(ctx context.Context, holdID string) error {
	return r.rdb.ZRem(ctx, r.key, holdID).Err()
}

func (r *RedisIndex) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}
	return r.rdb.ZRangeByScore(ctx, r.key, by).Result()
}

func (r *RedisIndex) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
