package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shareit/internal/config"
	"shareit/internal/models"

	"github.com/redis/go-redis/v9"
)

// ItemDetailsCache keeps annotated item views in Redis. Owner and non-owner
// views are cached under separate keys because they differ in booking
// annotations.
type ItemDetailsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewItemDetailsCache(client *redis.Client, ttl time.Duration) *ItemDetailsCache {
	return &ItemDetailsCache{
		client: client,
		ttl:    ttl,
	}
}

func itemKey(itemID int64, ownerView bool) string {
	if ownerView {
		return fmt.Sprintf("item_details:owner:%d", itemID)
	}
	return fmt.Sprintf("item_details:public:%d", itemID)
}

func (c *ItemDetailsCache) Get(ctx context.Context, itemID int64, ownerView bool) (*models.ItemDetails, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := c.client.Get(ctx, itemKey(itemID, ownerView)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item details from redis: %w", err)
	}

	var details models.ItemDetails
	if err := json.Unmarshal([]byte(val), &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item details: %w", err)
	}

	return &details, nil
}

func (c *ItemDetailsCache) Set(ctx context.Context, details models.ItemDetails, ownerView bool) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal item details: %w", err)
	}

	if err := c.client.Set(ctx, itemKey(details.ID, ownerView), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set item details in redis: %w", err)
	}

	return nil
}

// Invalidate drops both views of the item. Called on every write that can
// change the annotated representation.
func (c *ItemDetailsCache) Invalidate(ctx context.Context, itemID int64) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	keys := []string{itemKey(itemID, true), itemKey(itemID, false)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete item details from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
