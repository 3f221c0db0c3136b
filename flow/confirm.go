package flow

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/internal/pool"
)

// Confirmer is the one-shot rendezvous between a running flow and the
// external operator. A run calls Request and blocks; the collaborator that
// received OnConfirmationRequested eventually calls Submit exactly once.
//
// Each Request owns a fresh channel, so a stale Submit from an earlier,
// already-resolved request cannot leak into the next one.
type Confirmer struct {
	mu sync.Mutex
	ch chan bool
}

// Request notifies the collaborator and blocks until Submit, the
// confirmation deadline, or ctx cancellation (stop or disconnect).
//
// It returns nil when the operator confirmed, efem.ErrUserRejected on
// decline, efem.ErrConfirmTimeout on deadline, and the ctx error otherwise.
func (c *Confirmer) Request(ctx context.Context, notifier efem.Notifier, kind, data string, timeout time.Duration) error {
	ch := make(chan bool, 1)

	c.mu.Lock()
	c.ch = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.ch == ch {
			c.ch = nil
		}
		c.mu.Unlock()
	}()

	notifier.OnConfirmationRequested(kind, data)

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case ok := <-ch:
		if !ok {
			return efem.ErrUserRejected
		}

		return nil

	case <-timer.C:
		return efem.ErrConfirmTimeout

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit resolves the outstanding confirmation request, if any. A Submit
// with no request outstanding is a no-op.
func (c *Confirmer) Submit(ok bool) {
	c.mu.Lock()
	ch := c.ch
	c.ch = nil
	c.mu.Unlock()

	if ch == nil {
		return
	}

	select {
	case ch <- ok:
	default:
	}
}
