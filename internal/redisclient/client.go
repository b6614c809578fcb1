package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farm-market/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	productKeyPrefix     = "product:"
	orderStatusKeyPrefix = "order:status:"

	productTTL     = 5 * time.Minute
	orderStatusTTL = 30 * time.Minute
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetProduct returns a cached product, or nil on a cache miss
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("product cache get failed: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("product cache decode failed: %w", err)
	}
	return &product, nil
}

// SetProduct caches a product with a short TTL
func (c *Client) SetProduct(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("product cache encode failed: %w", err)
	}
	return c.rdb.Set(ctx, productKeyPrefix+product.ID, data, productTTL).Err()
}

// InvalidateProduct drops a product from the cache
func (c *Client) InvalidateProduct(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, productKeyPrefix+id).Err()
}

// SetOrderStatus caches the latest known status of an order
func (c *Client) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	return c.rdb.Set(ctx, orderStatusKeyPrefix+orderID, string(status), orderStatusTTL).Err()
}

// GetOrderStatus returns the cached order status, or "" on a cache miss
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	val, err := c.rdb.Get(ctx, orderStatusKeyPrefix+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("order status cache get failed: %w", err)
	}
	return models.OrderStatus(val), nil
}
