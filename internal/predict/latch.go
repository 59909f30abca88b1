package predict

import (
	"context"
	"sync/atomic"
)

// Latch guards against overlapping submissions for one session.
type Latch interface {
	// TryAcquire returns false without blocking when already held.
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLatch is an in-process latch for single-user callers such as the CLI.
type LocalLatch struct {
	busy atomic.Bool
}

func (l *LocalLatch) TryAcquire(context.Context) (bool, error) {
	return l.busy.CompareAndSwap(false, true), nil
}

func (l *LocalLatch) Release(context.Context) error {
	l.busy.Store(false)
	return nil
}

// Busy reports whether a submission is in flight.
func (l *LocalLatch) Busy() bool {
	return l.busy.Load()
}
