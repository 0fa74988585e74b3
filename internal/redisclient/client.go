package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/unlock.lua
var unlockScript string

type Client struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
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

	return &Client{
		rdb:    rdb,
		unlock: redis.NewScript(unlockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireCarLock takes the per-car processing lock. Returns the token to
// release with and whether the lock was acquired. The TTL guards against a
// crashed holder wedging the car forever.
func (c *Client) AcquireCarLock(ctx context.Context, carID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	key := fmt.Sprintf("lock:car:%d", carID)

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock failed: %w", err)
	}
	return token, ok, nil
}

// ReleaseCarLock releases the per-car lock if the token still owns it. A
// lock that expired and was re-acquired by another worker is left alone.
func (c *Client) ReleaseCarLock(ctx context.Context, carID int64, token string) error {
	key := fmt.Sprintf("lock:car:%d", carID)

	_, err := c.unlock.Run(ctx, c.rdb, []string{key}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock failed: %w", err)
	}
	return nil
}

// CacheCar stores a catalog car record with TTL.
func (c *Client) CacheCar(ctx context.Context, car *models.Car, ttl time.Duration) error {
	data, err := json.Marshal(car)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("car:%d", car.ID), data, ttl).Err()
}

// GetCachedCar retrieves a cached catalog car record. Returns nil without
// error on a cache miss.
func (c *Client) GetCachedCar(ctx context.Context, carID int64) (*models.Car, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("car:%d", carID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var car models.Car
	if err := json.Unmarshal(data, &car); err != nil {
		return nil, err
	}
	return &car, nil
}
