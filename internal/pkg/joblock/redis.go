package joblock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "job_lock:"

// RedisStore keeps job locks in Redis. Obtained locks are tracked per
// process because only the obtaining client holds the release token.
type RedisStore struct {
	locker *redislock.Client
	mu     sync.Mutex
	held   map[string]*redislock.Lock
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		locker: redislock.New(rdb),
		held:   make(map[string]*redislock.Lock),
	}
}

func (s *RedisStore) AcquireLock(ctx context.Context, jobName string, ttl time.Duration, holder string) (bool, error) {
	lock, err := s.locker.Obtain(ctx, redisKeyPrefix+jobName, ttl, &redislock.Options{Metadata: holder})
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.held[jobName] = lock
	s.mu.Unlock()
	return true, nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, jobName string, holder string) (bool, error) {
	s.mu.Lock()
	lock, ok := s.held[jobName]
	if ok && lock.Metadata() == holder {
		delete(s.held, jobName)
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := lock.Release(ctx); err != nil {
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
