package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quickfi/internal/screening/models"
)

const redisKeyPrefix = "screening:registry:"

// RedisStore persists responses in Redis with TTL eviction.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Find returns ErrNotFound on a miss; other errors wrap Redis or decode failures.
func (s *RedisStore) Find(ctx context.Context, key string) (*models.RegistryResponse, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registry cache: %w", err)
	}
	var resp models.RegistryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode registry cache: %w", err)
	}
	return &resp, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, resp *models.RegistryResponse) error {
	if resp == nil {
		return fmt.Errorf("registry response is required")
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode registry cache: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save registry cache: %w", err)
	}
	return nil
}
