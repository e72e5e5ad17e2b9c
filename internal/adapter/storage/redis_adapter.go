package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	idempotencyKeyTTL = 24 * time.Hour
)

// Reserve script: decrement only when enough stock is tracked. A missing
// key means the product's stock is unmanaged, which reserves
// unconditionally.
var reserveStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// Release script: restore stock only for tracked products, so a release
// never creates a phantom inventory record.
var releaseStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 1 then
	redis.call('INCRBY', key, quantity)
end

return 1
`)

// RedisAdapter implements the inventory ledger on Redis for deployments
// where the hot reserve path must not touch MySQL, plus the idempotency
// store used by checkout. The Lua scripts keep the check-and-decrement
// atomic inside the store.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Reserve(ctx context.Context, productID string, quantity int) (bool, error) {
	key := stockKeyPrefix + productID

	result, err := reserveStockScript.Run(ctx, r.client, []string{key}, quantity).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

func (r *RedisAdapter) Release(ctx context.Context, productID string, quantity int) error {
	key := stockKeyPrefix + productID
	return releaseStockScript.Run(ctx, r.client, []string{key}, quantity).Err()
}

func (r *RedisAdapter) Available(ctx context.Context, productID string) (int, bool, error) {
	key := stockKeyPrefix + productID

	value, err := r.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	key := stockKeyPrefix + productID
	return r.client.Set(ctx, key, quantity, 0).Err()
}
