package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisOptions holds connection settings for the Redis record store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a go-redis client from opts.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// Ping checks connectivity.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// RedisStore implements RecordStore on Redis string keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Keys are written as prefix + name.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get reads a record.
func (r *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	val, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading record %s: %w", name, err)
	}
	return val, nil
}

// Put writes a record with a single SET.
func (r *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("writing record %s: %w", name, err)
	}
	return nil
}

// Delete removes a record.
func (r *RedisStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("deleting record %s: %w", name, err)
	}
	return nil
}

func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

var _ RecordStore = (*RedisStore)(nil)
