package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/airport-weather/internal/weather"
)

// RedisClient is the subset of Redis commands the latest mirror needs.
type RedisClient interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}

type goRedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &goRedisClient{client: client}, nil
}

func (r *goRedisClient) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *goRedisClient) Close() error {
	return r.client.Close()
}

func (r *goRedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

// RedisLatest mirrors the latest snapshot as one JSON document under a fixed key.
type RedisLatest struct {
	client RedisClient
	key    string
}

// NewRedisLatest creates a RedisLatest writing to key.
func NewRedisLatest(client RedisClient, key string) *RedisLatest {
	return &RedisLatest{client: client, key: key}
}

// Name identifies the sink in logs and metrics.
func (r *RedisLatest) Name() string { return "redis" }

// PublishLatest overwrites the key with the snapshot.
func (r *RedisLatest) PublishLatest(ctx context.Context, snap weather.Snapshot, updatedAt time.Time) error {
	raw, err := json.Marshal(newLatestRecord(snap, updatedAt))
	if err != nil {
		return fmt.Errorf("encode latest: %w", err)
	}
	if err := r.client.Set(ctx, r.key, string(raw)); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

// Latest reads the mirrored snapshot back. ErrNotFound means nothing was published yet.
func (r *RedisLatest) Latest(ctx context.Context) (LatestRecord, error) {
	raw, err := r.client.Get(ctx, r.key)
	if err != nil {
		return LatestRecord{}, err
	}
	var rec LatestRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return LatestRecord{}, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return rec, nil
}
