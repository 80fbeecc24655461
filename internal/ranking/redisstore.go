package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ehonhub/pkg/models"
)

const DefaultRedisKey = "ehonhub:ranking:latest"

// RedisStore keeps the snapshot as one JSON value under Key.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{Client: client, Key: key}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) Read(ctx context.Context) (models.Snapshot, error) {
	b, err := s.Client.Get(ctx, s.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, nil
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("redis get %s: %w", s.Key, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Write(ctx context.Context, snap models.Snapshot) error {
	if snap.Ranking == nil {
		snap.Ranking = []models.BookAggregate{}
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.Client.Set(ctx, s.Key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Key, err)
	}
	return nil
}
