package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const pingAttempts = 10

// CacheService wraps an optional Redis client. With no client every call is a no-op.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(cfg config.RedisConfig, logger logrus.FieldLogger) (*CacheService, error) {
	if !cfg.Enabled() {
		return &CacheService{}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return &CacheService{}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	var lastErr error
	for i := 0; i < pingAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		logger.WithError(lastErr).Warnf("redis ping attempt %d/%d failed", i+1, pingAttempts)
		time.Sleep(2 * time.Second)
	}

	_ = client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", pingAttempts, lastErr)
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

// Get decodes the cached value into dest and reports whether it was present.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Available() {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}

// RowPublisher fans appended rows out on a Redis channel as one JSON array per batch.
type RowPublisher struct {
	cache   *CacheService
	channel string
}

func NewRowPublisher(cache *CacheService, channel string) *RowPublisher {
	return &RowPublisher{cache: cache, channel: channel}
}

func (p *RowPublisher) Name() string { return "redis" }

func (p *RowPublisher) Publish(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return p.cache.Publish(ctx, p.channel, rows)
}
