package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a go-redis client. Locks are SET NX with a TTL and
// a random owner token; unlock compares the token server-side before deleting
// so an expired lock re-acquired by someone else is never released by the old
// owner.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incrby %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) GetCounter(ctx context.Context, key string) (int64, bool, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis counter %s holds %q: %w", key, raw, err)
	}
	return n, true, nil
}

func (r *Redis) SetCounter(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	return nil
}

func (r *Redis) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx %s: %w", name, err)
	}
	if !ok {
		return "", ErrLockBusy
	}
	return token, nil
}

// unlockScript deletes the lock only when the caller still owns it.
const unlockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

func (r *Redis) ReleaseLock(ctx context.Context, name string, token string) error {
	if err := r.client.Eval(ctx, unlockScript, []string{name}, token).Err(); err != nil {
		return fmt.Errorf("redis unlock %s: %w", name, err)
	}
	return nil
}
