package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/textbookhub/pkg/config"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// RevokeToken blacklists a token JTI until the token would have expired
// anyway. Revocation state lives here, not in process memory, so every
// instance sees a logout immediately.
func (r *RedisRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := fmt.Sprintf("auth:revoked:%s", jti)
	return r.client.Set(ctx, key, "1", ttl).Err()
}

func (r *RedisRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	key := fmt.Sprintf("auth:revoked:%s", jti)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OrderCache is the hot read projection for recently placed orders.
type OrderCache struct {
	ID          string  `json:"id"`
	IdentityID  string  `json:"identity_id"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

func (r *RedisRepository) CacheOrder(ctx context.Context, order *OrderCache) error {
	key := fmt.Sprintf("order:%s", order.ID)
	return r.SetJSON(ctx, key, order, 30*time.Minute)
}

func (r *RedisRepository) GetOrderCache(ctx context.Context, orderID string) (*OrderCache, error) {
	key := fmt.Sprintf("order:%s", orderID)
	var order OrderCache
	if err := r.GetJSON(ctx, key, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.Del(ctx, fmt.Sprintf("order:%s", orderID))
}
