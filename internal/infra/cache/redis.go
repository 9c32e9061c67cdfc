package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "discogs:page:"

// RedisStore 把页面存为 Redis 字符串（不设过期时间，与文件缓存语义一致）。
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + k, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	rk, err := s.redisKey(key)
	if err != nil {
		return nil, false, err
	}
	b, err := s.client.Get(ctx, rk).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, b []byte) error {
	rk, err := s.redisKey(key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rk, b, 0).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
