package efemlink

import (
	"context"
	"time"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/internal/pool"
)

// pendingRequest is the single in-flight request slot. The wire protocol
// carries no request identifiers, so responses match by command name only
// and at most one request may be outstanding at any instant.
type pendingRequest struct {
	name     string
	sentAt   time.Time
	deadline time.Duration
	respChan chan *efem.Response
	errChan  chan error
}

// registerPending installs a new pending request. It fails with
// efem.ErrRequestPending when another request is already in flight, and with
// efem.ErrNotConnected when the link is down.
func (c *Connection) registerPending(name string, deadline time.Duration) (*pendingRequest, error) {
	if !c.stateMgr.IsConnected() {
		return nil, efem.ErrNotConnected
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if c.pending != nil {
		return nil, efem.ErrRequestPending
	}

	req := &pendingRequest{
		name:     name,
		sentAt:   time.Now(),
		deadline: deadline,
		respChan: make(chan *efem.Response, 1),
		errChan:  make(chan error, 1),
	}
	c.pending = req

	return req, nil
}

// clearPending releases the in-flight slot if req still owns it. Late frames
// arriving after the slot is cleared are unmatched and dropped.
func (c *Connection) clearPending(req *pendingRequest) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if c.pending == req {
		c.pending = nil
	}
}

// abortPending fails the in-flight request, if any, with the given error.
// Called on disconnect and on sender failure so the caller never blocks for
// the full reply deadline on a dead link.
func (c *Connection) abortPending(err error) {
	c.pendingMu.Lock()
	req := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	if req == nil {
		return
	}

	select {
	case req.errChan <- err:
	default:
	}
}

// dispatchResponse routes a non-event message to the in-flight request.
//
// A message whose name does not match the pending command, or arriving with
// no pending command at all, is logged and dropped. A name-matched message
// with neither the OK nor the Error token carries no response; it is logged
// and the request keeps waiting for its deadline.
func (c *Connection) dispatchResponse(msg *efem.Message) {
	c.pendingMu.Lock()
	req := c.pending
	if req != nil && req.name == msg.Name {
		if resp, ok := efem.ResponseFromMessage(msg); ok {
			c.pending = nil
			c.pendingMu.Unlock()

			req.respChan <- resp

			return
		}

		c.pendingMu.Unlock()
		c.logger.Warn("response frame without OK/Error token, keep waiting",
			"method", "dispatchResponse", "frame", msg.Raw,
		)

		return
	}
	c.pendingMu.Unlock()

	c.metrics.incProtocolErrCount()
	c.logger.Warn("unmatched response frame dropped",
		"method", "dispatchResponse", "frame", msg.Raw,
	)
}

// await blocks until the request resolves: a matched response, the reply
// deadline, a link failure, or context cancellation.
//
// On timeout the slot is cleared first, so a frame that arrives afterwards is
// unmatched and dropped rather than resolving a request the caller already
// gave up on.
func (c *Connection) await(ctx context.Context, req *pendingRequest) (*efem.Response, error) {
	timer := pool.GetTimer(req.deadline)
	defer pool.PutTimer(timer)

	select {
	case resp := <-req.respChan:
		return resp, nil

	case err := <-req.errChan:
		c.clearPending(req)
		return nil, err

	case <-ctx.Done():
		c.clearPending(req)
		return nil, ctx.Err()

	case <-timer.C:
		c.clearPending(req)

		// the response may have been dispatched between the timer firing and
		// the slot being cleared; prefer it over a timeout
		select {
		case resp := <-req.respChan:
			return resp, nil
		default:
		}

		c.metrics.incTimeoutCount()
		c.logger.Warn("command timed out",
			"method", "await", "command", req.name, "deadline", req.deadline,
		)

		return &efem.Response{Kind: efem.RespTimeout}, nil
	}
}
