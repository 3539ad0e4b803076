package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 把验证码保存在 Redis 中，依赖原生 TTL 过期，多个实例共享同一视图。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Put(ctx context.Context, purpose Purpose, email string, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, purpose, email)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(purpose, email), payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, purpose Purpose, email string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.key(purpose, email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("otp get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("otp decode: %w", err)
	}
	return entry, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, purpose Purpose, email string) error {
	return s.client.Del(ctx, s.key(purpose, email)).Err()
}

// PurgeExpired is a no-op: Redis evicts keys once their TTL elapses.
func (s *RedisStore) PurgeExpired(context.Context, Purpose, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) key(purpose Purpose, email string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, purpose, email)
}
