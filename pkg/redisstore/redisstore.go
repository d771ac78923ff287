// Package redisstore implements the queue.ListStore port on top of Redis lists.
package redisstore

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	"go.od2.network/tubeq/pkg/queue"
)

// Store holds dead-letter lists in Redis.
// It is safe to share one Store between consumers.
type Store struct {
	Redis *redis.Client
}

// Assert Store implements queue.ListStore.
var _ queue.ListStore = (*Store)(nil)

// LPush prepends a value and returns the new list length.
func (s *Store) LPush(ctx context.Context, key string, value []byte) (int64, error) {
	return s.Redis.LPush(ctx, key, value).Result()
}

// RPush appends a value and returns the new list length.
func (s *Store) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	return s.Redis.RPush(ctx, key, value).Result()
}

// RPop removes and returns the last value, or nil if the list is empty.
func (s *Store) RPop(ctx context.Context, key string) ([]byte, error) {
	value, err := s.Redis.RPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return value, nil
}

// LLen returns the list length, zero if it does not exist.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	return s.Redis.LLen(ctx, key).Result()
}

// Del deletes the list and returns whether it existed.
func (s *Store) Del(ctx context.Context, key string) (bool, error) {
	n, err := s.Redis.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
