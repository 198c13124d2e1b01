package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisTokenRepository implements domain.TokenRepository on Redis keys with
// an absolute EX expiry. All keys are namespaced by prefix.
type RedisTokenRepository struct {
	client redis.Cmdable
	prefix string
}

// NewTokenRepository creates a RedisTokenRepository storing keys under prefix.
func NewTokenRepository(client redis.Cmdable, prefix string) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, prefix: prefix}
}

// Put stores value under key for ttl. A non-positive ttl is rejected, since
// Redis would keep the key forever.
func (r *RedisTokenRepository) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return oops.Code("TOKEN_TTL_INVALID").With("ttl", ttl).Errorf("token ttl must be positive, got %s", ttl)
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return oops.Code("TOKEN_PUT_FAILED").With("operation", "set token").Wrap(err)
	}
	return nil
}

// Get returns the value stored under key.
// Returns ("", false, nil) when the key is missing or expired.
func (r *RedisTokenRepository) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("TOKEN_GET_FAILED").With("operation", "get token").Wrap(err)
	}
	return val, true, nil
}

// takeScript reads, measures and deletes a key in one step.
var takeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
	return false
end
local ttl = redis.call("PTTL", KEYS[1])
redis.call("DEL", KEYS[1])
return {v, ttl}
`)

// Take atomically removes key and returns its value with the lifetime it had left.
// Of several concurrent callers, only one sees ok == true.
func (r *RedisTokenRepository) Take(ctx context.Context, key string) (string, time.Duration, bool, error) {
	res, err := takeScript.Run(ctx, r.client, []string{r.prefix + key}).Slice()
	if errors.Is(err, redis.Nil) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, oops.Code("TOKEN_TAKE_FAILED").With("operation", "take token").Wrap(err)
	}
	if len(res) != 2 {
		return "", 0, false, oops.Code("TOKEN_TAKE_FAILED").Errorf("unexpected reply of %d elements", len(res))
	}

	value, _ := res[0].(string)
	ms, _ := res[1].(int64)
	return value, time.Duration(ms) * time.Millisecond, true, nil
}

// Delete removes key.
func (r *RedisTokenRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").With("operation", "delete token").Wrap(err)
	}
	return nil
}
