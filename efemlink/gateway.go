package efemlink

import (
	"context"
	"time"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/internal/pool"
)

// statusQueries are command names answered from controller state without
// motion; they get the shorter status deadline by default.
var statusQueries = map[string]struct{}{
	"GetStatus":          {},
	"GetMapResult":       {},
	"CheckWaferPresence": {},
	"GetCurrentMode":     {},
	"GetVersion":         {},
}

// SendAndAwait sends one command and blocks until its response, a device
// error, the reply deadline, or a link failure.
//
// A timeout <= 0 selects the configured deadline for the command name:
// a per-name override set with SetCommandTimeout or WithCommandTimeoutClass
// first, then the status deadline for pure status queries, then the general
// command deadline. A timed-out command resolves to a Response with
// RespTimeout kind, not an error; errors indicate the command was never
// delivered, the link failed while waiting, or ctx was cancelled.
func (c *Connection) SendAndAwait(ctx context.Context, cmd efem.Command, timeout time.Duration) (*efem.Response, error) {
	if timeout <= 0 {
		timeout = c.timeoutFor(cmd.Name)
	}

	req, err := c.registerPending(cmd.Name, timeout)
	if err != nil {
		return nil, err
	}

	if err := c.enqueueFrame(cmd.Format()); err != nil {
		c.clearPending(req)
		return nil, err
	}

	c.notifier.OnLog("> " + cmd.String())

	return c.await(ctx, req)
}

// Send enqueues one command without registering for a response. Used for
// best-effort cleanup commands where the outcome does not steer a flow.
func (c *Connection) Send(cmd efem.Command) error {
	if !c.stateMgr.IsConnected() {
		return efem.ErrNotConnected
	}

	if err := c.enqueueFrame(cmd.Format()); err != nil {
		return err
	}

	c.notifier.OnLog("> " + cmd.String())

	return nil
}

// SetCommandTimeout overrides the reply deadline for one command name at
// runtime. It is safe to call concurrently with SendAndAwait.
func (c *Connection) SetCommandTimeout(name string, d time.Duration) {
	if name == "" || d <= 0 {
		return
	}

	c.timeouts.Store(name, d)
}

// timeoutFor resolves the reply deadline for a command name.
func (c *Connection) timeoutFor(name string) time.Duration {
	if d, ok := c.timeouts.Load(name); ok {
		return d
	}

	if _, ok := statusQueries[name]; ok {
		return c.cfg.StatusTimeout()
	}

	return c.cfg.CommandTimeout()
}

// enqueueFrame hands one wire frame to the sender task. It fails with
// efem.ErrSendQueueFull when the mailbox stays full for the write deadline,
// and with efem.ErrConnClosed when the link shuts down first.
func (c *Connection) enqueueFrame(frame string) error {
	timer := pool.GetTimer(c.cfg.writeTimeout)
	defer pool.PutTimer(timer)

	select {
	case c.senderChan <- frame:
		return nil
	case <-c.ctx.Done():
		return efem.ErrConnClosed
	case <-timer.C:
		return efem.ErrSendQueueFull
	}
}
