// Package cache stores the curriculum snapshot in Redis so that restarts and
// sibling instances can skip a full fetch from the academic records API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biograph/insights/internal/curriculum"
)

var (
	// ErrCacheMiss is returned when no snapshot is cached.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheSerialization is returned when a cached snapshot cannot be decoded.
	ErrCacheSerialization = errors.New("cache: serialization failed")
)

const snapshotKey = "snapshot"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "biograph:insights".
	Prefix string
	TTL    time.Duration
}

// SnapshotCache reads and writes the snapshot under a single key.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*SnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SnapshotCache) key(name string) string {
	if c.prefix == "" {
		return name
	}
	return c.prefix + ":" + name
}

// Get returns the cached entities and the time they were fetched upstream.
func (c *SnapshotCache) Get(ctx context.Context) (curriculum.Entities, time.Time, error) {
	raw, err := c.client.Get(ctx, c.key(snapshotKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return curriculum.Entities{}, time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return curriculum.Entities{}, time.Time{}, fmt.Errorf("redis get: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return curriculum.Entities{}, time.Time{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	e, err := rec.entities()
	if err != nil {
		return curriculum.Entities{}, time.Time{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return e, rec.TakenAt, nil
}

// Set stores a snapshot with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, e curriculum.Entities, takenAt time.Time) error {
	raw, err := json.Marshal(newSnapshotRecord(e, takenAt))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	if err := c.client.Set(ctx, c.key(snapshotKey), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key(snapshotKey)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
