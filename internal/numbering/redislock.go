package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quotient-erp/quotient/internal/shared"
)

// RedisLocker serialises prefix issuance across service instances with a
// short-lived redis lease. The lease token guards against releasing a lock
// that expired and was re-acquired by another holder.
type RedisLocker struct {
	client  *redis.Client
	ttl     time.Duration
	maxWait time.Duration
}

// NewRedisLocker constructs a RedisLocker. ttl bounds how long a crashed
// holder can block a prefix; maxWait bounds how long Acquire spins before
// reporting contention.
func NewRedisLocker(client *redis.Client, ttl, maxWait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 3 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, maxWait: maxWait}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := shared.SequenceLockKey(key)
	token := uuid.NewString()
	deadline := time.Now().Add(l.maxWait)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return func() {}, fmt.Errorf("numbering: redis lock %s: %v: %w", key, err, ErrStorageUnavailable)
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{lockKey}, token).Err()
			}
			return release, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("numbering: lock %s held too long: %w", key, ErrContention)
		}
		select {
		case <-ctx.Done():
			return func() {}, fmt.Errorf("numbering: acquire %s: %w", key, ErrTimeout)
		case <-time.After(lockWaitSlice):
		}
	}
}
