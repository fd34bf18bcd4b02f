// Package background runs fire-and-forget tasks detached from the request
// that spawned them, with panic isolation and a drained shutdown.
package background

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Add schedules fn on its own goroutine. The task receives a fresh context:
// the request that scheduled it has usually completed by the time it runs.
func (b *Background) Add(fn func(ctx context.Context)) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("panic", rec).Error("background task panicked")
			}
		}()

		fn(context.Background())
	}()
}

// Shutdown waits for in-flight tasks to finish or the context to expire.
func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
