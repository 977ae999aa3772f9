package util

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/entity"

	"github.com/redis/go-redis/v9"
)

const newArrivalsCacheKey = "products:new_arrivals"

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientWithClient оборачивает готовый клиент (используется в тестах с miniredis)
func NewRedisClientWithClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) SetNewArrivals(ctx context.Context, products []entity.Product, ttl time.Duration) error {
	timer := metrics.NewRedisTimer("product-service", metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal new arrivals: %w", err)
	}

	if err := r.client.Set(ctx, newArrivalsCacheKey, data, ttl).Err(); err != nil {
		metrics.RecordRedisError("product-service", metrics.RedisOpSet)
		return fmt.Errorf("failed to set new arrivals in cache: %w", err)
	}

	return nil
}

func (r *RedisClient) GetNewArrivals(ctx context.Context) ([]entity.Product, error) {
	timer := metrics.NewRedisTimer("product-service", metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, newArrivalsCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheMiss("product-service", "products")
			return nil, nil
		}
		metrics.RecordRedisError("product-service", metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get new arrivals from cache: %w", err)
	}

	var products []entity.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new arrivals: %w", err)
	}

	metrics.RecordCacheHit("product-service", "products")
	return products, nil
}

func (r *RedisClient) InvalidateNewArrivals(ctx context.Context) error {
	timer := metrics.NewRedisTimer("product-service", metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, newArrivalsCacheKey).Err(); err != nil {
		metrics.RecordRedisError("product-service", metrics.RedisOpDel)
		return fmt.Errorf("failed to invalidate new arrivals cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
