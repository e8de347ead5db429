package joblock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the shared atomic primitive behind Locker. AcquireLock must only
// succeed when no live lock exists for jobName or the existing one expired.
type Store interface {
	AcquireLock(ctx context.Context, jobName string, ttl time.Duration, holder string) (bool, error)
	ReleaseLock(ctx context.Context, jobName string, holder string) (bool, error)
}

// Locker guards scheduled jobs so overlapping invocations of the same job
// name are skipped instead of run twice. Every acquisition gets its own
// holder token, so a run that outlived its lease cannot release the lease of
// the run that took over.
type Locker struct {
	store   Store
	process string
	logger  *slog.Logger

	mu   sync.Mutex
	held map[string]string
}

func NewLocker(store Store, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{
		store:   store,
		process: processID(),
		logger:  logger,
		held:    make(map[string]string),
	}
}

// Acquire takes the lock for jobName. The holder token is remembered so a
// later Release from this Locker can return it.
func (l *Locker) Acquire(ctx context.Context, jobName string, ttlSeconds int) (bool, error) {
	holder, ok, err := l.acquire(ctx, jobName, ttlSeconds)
	if err != nil || !ok {
		return false, err
	}
	l.mu.Lock()
	l.held[jobName] = holder
	l.mu.Unlock()
	return true, nil
}

// Release returns the lease taken by the latest Acquire of jobName.
func (l *Locker) Release(ctx context.Context, jobName string) (bool, error) {
	l.mu.Lock()
	holder, ok := l.held[jobName]
	delete(l.held, jobName)
	l.mu.Unlock()
	if !ok {
		return false, nil
	}
	return l.release(ctx, jobName, holder)
}

func (l *Locker) acquire(ctx context.Context, jobName string, ttlSeconds int) (string, bool, error) {
	if ttlSeconds <= 0 {
		return "", false, fmt.Errorf("invalid ttl %d for job %s", ttlSeconds, jobName)
	}
	holder := l.process + ":" + uuid.NewString()
	ok, err := l.store.AcquireLock(ctx, jobName, time.Duration(ttlSeconds)*time.Second, holder)
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", jobName, err)
	}
	return holder, ok, nil
}

func (l *Locker) release(ctx context.Context, jobName, holder string) (bool, error) {
	ok, err := l.store.ReleaseLock(ctx, jobName, holder)
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s: %w", jobName, err)
	}
	return ok, nil
}

// Result is what WithLock hands back. Skipped means another holder was
// running the job and fn was never called.
type Result[T any] struct {
	Skipped bool
	Value   T
}

// WithLock runs fn only when the lock is obtained and always releases it
// afterwards, including when fn returns an error or panics.
func WithLock[T any](ctx context.Context, l *Locker, jobName string, ttlSeconds int, fn func(ctx context.Context) (T, error)) (result Result[T], err error) {
	holder, acquired, err := l.acquire(ctx, jobName, ttlSeconds)
	if err != nil {
		return Result[T]{}, err
	}
	if !acquired {
		l.logger.Info("Job already running, skipped", "job", jobName)
		return Result[T]{Skipped: true}, nil
	}

	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if _, relErr := l.release(releaseCtx, jobName, holder); relErr != nil {
			l.logger.Error("Failed to release job lock", "job", jobName, "error", relErr)
		}
	}()

	value, err := fn(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Value: value}, nil
}

func processID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}
