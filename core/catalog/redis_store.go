package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/d2oracle/oracle/core/infra/redisutil"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisURL = "redis://localhost:6379"
	keyDocument     = "oracle:catalog:doc"
	keyRevision     = "oracle:catalog:rev"
)

// ErrNotFound is returned when no catalog has been pushed to Redis yet.
var ErrNotFound = errors.New("catalog not found")

// RedisStore keeps the formula catalog document in Redis so every server instance loads the same table.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed catalog store.
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		url = defaultRedisURL
	}
	client, err := redisutil.Connect(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Close shuts down the Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Put validates and stores a catalog document, returning the new revision number.
func (s *RedisStore) Put(ctx context.Context, data []byte) (int64, error) {
	if s == nil || s.client == nil {
		return 0, fmt.Errorf("catalog store unavailable")
	}
	if _, err := Parse(data); err != nil {
		return 0, err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyDocument, data, 0)
	rev := pipe.Incr(ctx, keyRevision)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("store catalog: %w", err)
	}
	return rev.Val(), nil
}

// Get returns the raw stored document and its revision.
func (s *RedisStore) Get(ctx context.Context) ([]byte, int64, error) {
	if s == nil || s.client == nil {
		return nil, 0, fmt.Errorf("catalog store unavailable")
	}
	pipe := s.client.Pipeline()
	doc := pipe.Get(ctx, keyDocument)
	rev := pipe.Get(ctx, keyRevision)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("read catalog: %w", err)
	}
	data, err := doc.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read catalog: %w", err)
	}
	revision, err := rev.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("read catalog revision: %w", err)
	}
	return data, revision, nil
}

// Load fetches and parses the stored catalog.
func (s *RedisStore) Load(ctx context.Context) (*Catalog, error) {
	data, _, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
