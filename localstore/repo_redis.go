package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo keeps one hash per scope. Every write refreshes the scope's TTL,
// so browsers that stop visiting age out on their own.
type RedisRepo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisRepo(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepo {
	if prefix == "" {
		prefix = "localstore"
	}
	return &RedisRepo{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRepo) redisKey(scope string) string {
	return fmt.Sprintf("%s:%s", r.prefix, scope)
}

func (r *RedisRepo) Get(ctx context.Context, scope, key string) (string, bool, error) {
	if err := validate(scope, key); err != nil {
		return "", false, err
	}
	if r.client == nil {
		return "", false, errors.New("redis client is nil")
	}

	value, err := r.client.HGet(ctx, r.redisKey(scope), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisRepo) Set(ctx context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}
	if r.client == nil {
		return errors.New("redis client is nil")
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.redisKey(scope), key, value)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.redisKey(scope), r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisRepo) Delete(ctx context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if len(keys) == 0 {
		return nil
	}
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	return r.client.HDel(ctx, r.redisKey(scope), keys...).Err()
}
