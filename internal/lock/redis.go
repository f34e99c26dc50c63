package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/lid_lottery/pkg/errors"
	"github.com/mroshb/lid_lottery/pkg/logger"
	"github.com/mroshb/lid_lottery/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lottery:lock"

// releaseScript deletes the lock only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance talking to the same Redis.
// A lock expires after ttl so a crashed holder cannot wedge a code forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
	}
}

func LockKey(key string) string {
	return fmt.Sprintf("%s:%s", lockKeyPrefix, key)
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	owner, err := utils.RandomHex(16)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to generate lock owner")
	}
	redisKey := LockKey(key)

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, owner, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to acquire lock")
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeLockTimeout, "timed out waiting for lock")
		case <-ticker.C:
		}
	}

	return func() {
		// Release even if the request context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, owner).Err(); err != nil {
			logger.Warn("Failed to release lock", "key", redisKey, "error", err)
		}
	}, nil
}
