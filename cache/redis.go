package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Mirror is a shared cache tier behind the local bolt cache.
type Mirror interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// RedisMirror stores cache entries in Redis under a namespace.
type RedisMirror struct {
	client    *redis.Client
	namespace string
}

// NewRedisMirror connects to the Redis server at url (redis:// or rediss://)
// and verifies the connection.
func NewRedisMirror(ctx context.Context, url, namespace string) (*RedisMirror, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisMirrorFromClient(client, namespace), nil
}

// NewRedisMirrorFromClient wraps an existing client.
func NewRedisMirrorFromClient(client *redis.Client, namespace string) *RedisMirror {
	if namespace == "" {
		namespace = "songbook"
	}
	return &RedisMirror{client: client, namespace: namespace}
}

func (m *RedisMirror) key(k string) string {
	return m.namespace + ":" + k
}

func (m *RedisMirror) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := m.client.Get(ctx, m.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (m *RedisMirror) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return m.client.Set(ctx, m.key(key), value, ttl).Err()
}

func (m *RedisMirror) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = m.key(k)
	}
	return m.client.Del(ctx, full...).Err()
}

// DeletePrefix scans for matching keys and deletes them in batches.
func (m *RedisMirror) DeletePrefix(ctx context.Context, prefix string) error {
	iter := m.client.Scan(ctx, 0, m.key(prefix)+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := m.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return m.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
