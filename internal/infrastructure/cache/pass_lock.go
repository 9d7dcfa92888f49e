package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const passLockPrefix = "reconciliation:lock:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisPassLock implements reconciliation.PassLock with SET NX and a
// token-checked release
type RedisPassLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPassLock creates a lock that expires after ttl if never released
func NewRedisPassLock(client *redis.Client, ttl time.Duration) *RedisPassLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisPassLock{client: client, ttl: ttl}
}

// TryLock acquires the lock for kind without waiting
func (l *RedisPassLock) TryLock(ctx context.Context, kind reconciliation.Kind) (func(context.Context) error, bool, error) {
	key := passLockPrefix + string(kind)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire pass lock %s: %w", kind, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release pass lock %s: %w", kind, err)
		}
		return nil
	}
	return unlock, true, nil
}
