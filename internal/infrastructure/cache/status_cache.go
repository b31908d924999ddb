package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

const statusKeyPrefix = "payment:status:"

// NewRedisClient creates and pings a Redis client
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Redis connection failed",
			zap.String("addr", cfg.Addr),
			zap.Error(err))
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", cfg.Addr))

	return client, nil
}

type redisStatusCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStatusCache creates a Redis-backed status cache
func NewRedisStatusCache(client *redis.Client, logger *zap.Logger) repository.StatusCache {
	return &redisStatusCache{
		client: client,
		logger: logger,
	}
}

// Get returns the cached normalized status, or (nil, nil) on a miss. Cache
// failures are returned so the caller can decide to fall through to the
// provider.
func (c *redisStatusCache) Get(ctx context.Context, orderID string) (*repository.NormalizedStatus, error) {
	value, err := c.client.Get(ctx, statusKeyPrefix+orderID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Warn("Status cache read failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	var status repository.NormalizedStatus
	if err := json.Unmarshal([]byte(value), &status); err != nil {
		c.logger.Warn("Status cache entry malformed, dropping",
			zap.String("order_id", orderID),
			zap.Error(err))
		c.client.Del(ctx, statusKeyPrefix+orderID)
		return nil, nil
	}

	return &status, nil
}

// Set stores the normalized status with a TTL
func (c *redisStatusCache) Set(ctx context.Context, orderID string, status *repository.NormalizedStatus, ttl time.Duration) error {
	value, err := json.Marshal(status)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, statusKeyPrefix+orderID, value, ttl).Err(); err != nil {
		c.logger.Warn("Status cache write failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return err
	}

	return nil
}
