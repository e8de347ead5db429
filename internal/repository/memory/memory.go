// Package memory holds mutex-guarded in-process implementations of the
// repository interfaces. Services are exercised against them in tests and
// they mirror the Postgres rules that matter to callers, such as the
// finalized-row guard on daily stats.
package memory

import (
	"context"
	"sync"
)

// Transactor runs fn inline. It counts calls and can be primed to fail.
type Transactor struct {
	mu    sync.Mutex
	calls int
	Err   error
}

func NewTransactor() *Transactor {
	return &Transactor{}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	err := t.Err
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}

func (t *Transactor) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func inRange(date, from, to string) bool {
	return date >= from && date <= to
}
