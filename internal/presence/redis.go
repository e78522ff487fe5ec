package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore is the shared TTL-capable backend for multi-instance
// deployments. One key per (scope, user), value is the last-seen unix time,
// key TTL is the prune horizon so Redis expires stale entries on its own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisStoreFromURL dials the instance behind a redis:// URL.
func NewRedisStoreFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("presence: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("presence: ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func presenceKey(scope, userID string) string {
	return "presence:" + scope + ":" + userID
}

func (s *RedisStore) Mark(ctx context.Context, scope, userID string) error {
	return s.client.Set(ctx, presenceKey(scope, userID),
		strconv.FormatInt(time.Now().Unix(), 10), s.ttl).Err()
}

func (s *RedisStore) Remove(ctx context.Context, scope, userID string) error {
	return s.client.Del(ctx, presenceKey(scope, userID)).Err()
}

func (s *RedisStore) Online(ctx context.Context, scope string, maxAge time.Duration) ([]string, error) {
	prefix := "presence:" + scope + ":"
	deadline := time.Now().Add(-maxAge).Unix()

	var online []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Result()
		if err != nil {
			continue // expired between SCAN and GET
		}
		lastSeen, err := strconv.ParseInt(val, 10, 64)
		if err != nil || lastSeen < deadline {
			continue
		}
		online = append(online, key[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return online, nil
}
