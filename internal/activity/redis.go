package activity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "activity/"

// RedisCounter keeps one sorted set per (user, kind), scored by event time in
// unix milliseconds. Counting is a ZCOUNT over the trailing window.
type RedisCounter struct {
	Client *redis.Client
}

// NewRedisCounter connects to redisURL and checks the connection.
func NewRedisCounter(ctx context.Context, redisURL string) (*RedisCounter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCounter{Client: rdb}, nil
}

func redisKey(userID uuid.UUID, kind Kind) string {
	return redisKeyPrefix + string(kind) + "/" + userID.String()
}

// Record adds the event, trims entries older than Retention and refreshes the
// key TTL in a single round trip.
func (r *RedisCounter) Record(ctx context.Context, userID uuid.UUID, kind Kind, at time.Time) error {
	if err := validKind(kind); err != nil {
		return err
	}
	key := redisKey(userID, kind)
	ms := at.UnixMilli()

	multi := r.Client.Pipeline()
	multi.ZAdd(ctx, key, redis.Z{
		Score:  float64(ms),
		Member: strconv.FormatInt(ms, 10) + "-" + uuid.NewString(),
	})
	multi.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(at.Add(-Retention).UnixMilli(), 10))
	multi.Expire(ctx, key, Retention)
	if _, err := multi.Exec(ctx); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// CountSince counts events strictly after since.
func (r *RedisCounter) CountSince(ctx context.Context, userID uuid.UUID, kind Kind, since time.Time) (int, error) {
	if err := validKind(kind); err != nil {
		return 0, err
	}
	n, err := r.Client.ZCount(ctx, redisKey(userID, kind), "("+strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return int(n), nil
}

// Close releases the underlying connection pool.
func (r *RedisCounter) Close() error {
	return r.Client.Close()
}
