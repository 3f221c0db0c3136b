package efemlink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/logger"
)

// Connection owns the TCP link to an EFEM controller.
//
// It runs three goroutines under an efem.TaskManager: the receiver task
// splits the inbound byte stream into frames and classifies each one, the
// sender task writes queued frames to the wire, and the event pump forwards
// unsolicited events to the Notifier in arrival order.
type Connection struct {
	pctx      context.Context
	ctx       context.Context
	ctxCancel context.CancelFunc

	cfg      *ConnectionConfig
	logger   logger.Logger
	notifier efem.Notifier
	metrics  ConnectionMetrics

	conn       net.Conn
	connMutex  sync.Mutex
	closeMutex sync.Mutex

	opState  AtomicOpState
	shutdown atomic.Bool

	stateMgr *efem.LinkStateMgr
	taskMgr  *efem.TaskManager

	senderChan chan string
	eventChan  chan *efem.Event

	pendingMu sync.Mutex
	pending   *pendingRequest

	timeouts *xsync.MapOf[string, time.Duration]
}

// NewConnection creates a Connection with the given parent context and
// configuration. The link is not opened until Open is called.
func NewConnection(ctx context.Context, cfg *ConnectionConfig) (*Connection, error) {
	if cfg == nil {
		return nil, efem.ErrConnConfigNil
	}

	c := &Connection{
		pctx:       ctx,
		cfg:        cfg,
		logger:     cfg.logger,
		notifier:   cfg.notifier,
		senderChan: make(chan string, cfg.senderQueueSize),
		eventChan:  make(chan *efem.Event, cfg.eventQueueSize),
		timeouts:   xsync.NewMapOf[string, time.Duration](),
	}

	c.createContext()

	for name, d := range cfg.timeoutClasses {
		c.timeouts.Store(name, d)
	}

	return c, nil
}

// createContext derives a fresh session context from the parent and rebuilds
// the managers bound to it. Called at construction and after each close, so a
// reopened link never inherits a cancelled context.
func (c *Connection) createContext() {
	c.ctx, c.ctxCancel = context.WithCancel(c.pctx)
	c.taskMgr = efem.NewTaskManager(c.ctx, c.logger)
	c.stateMgr = efem.NewLinkStateMgr(c.ctx, c.logger, c.linkStateHandler)
}

// Open dials the controller and starts the link tasks. It blocks until the
// TCP connection is established or the connect timeout elapses.
func (c *Connection) Open() error {
	if !c.opState.ToOpening() {
		return efem.ErrAlreadyConnected
	}

	c.shutdown.Store(false)

	if err := c.stateMgr.ToConnecting(); err != nil {
		c.opState.Set(ClosedState)
		return err
	}

	addr := net.JoinHostPort(c.cfg.Host(), strconv.Itoa(c.cfg.Port()))
	c.logger.Debug("connecting to the EFEM controller", "method", "Open", "address", addr)

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout()}

	conn, err := dialer.DialContext(c.ctx, "tcp", addr)
	if err != nil {
		c.stateMgr.ToError()
		c.closeConn()

		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.connMutex.Lock()
	c.conn = conn
	c.connMutex.Unlock()

	if err := c.startTasks(conn); err != nil {
		c.closeConn()
		return err
	}

	if err := c.stateMgr.ToConnected(); err != nil {
		c.closeConn()
		return err
	}

	c.opState.ToOpened()
	c.logger.Debug("EFEM link opened", "method", "Open", "address", addr)

	return nil
}

// Close shuts the link down and waits for the tasks to terminate.
func (c *Connection) Close() error {
	if c.opState.IsClosed() {
		return nil
	}

	c.shutdown.Store(true)
	c.closeConn()

	return nil
}

// Done returns a channel closed when the current link session ends, whether
// by Close or by a remote disconnect. Runners watch it so a disconnect acts
// as an implicit stop even while parked on a confirmation or a script wait.
func (c *Connection) Done() <-chan struct{} {
	c.closeMutex.Lock()
	defer c.closeMutex.Unlock()

	return c.ctx.Done()
}

// State returns the current link state.
func (c *Connection) State() efem.LinkState {
	return c.stateMgr.State()
}

// IsConnected reports whether the link is open.
func (c *Connection) IsConnected() bool {
	return c.stateMgr.IsConnected()
}

// WaitState blocks until the link reaches the given state or the context is
// done.
func (c *Connection) WaitState(ctx context.Context, state efem.LinkState) error {
	return c.stateMgr.WaitState(ctx, state)
}

// Metrics returns the wire-level counters of the link.
func (c *Connection) Metrics() *ConnectionMetrics {
	return &c.metrics
}

// Config returns the link configuration.
func (c *Connection) Config() *ConnectionConfig {
	return c.cfg
}

// startTasks launches the sender task, the event pump, the receiver task and,
// when configured, the background status poll.
func (c *Connection) startTasks(conn net.Conn) error {
	if err := c.taskMgr.StartSender("senderTask", c.senderTask, nil, c.senderChan); err != nil {
		return err
	}

	if err := c.taskMgr.StartEventPump("eventPump", c.handleEvent, c.eventChan); err != nil {
		return err
	}

	if interval := c.cfg.StatusPollInterval(); interval > 0 {
		if _, err := c.taskMgr.StartInterval("statusPoll", c.statusPoll, interval, false); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(conn)
	scanner.Split(splitFrames)

	return c.taskMgr.StartReceiver("receiverTask",
		func() bool { return c.receiveFrame(scanner) },
		c.receiverCancel,
	)
}

// statusPoll issues one GetStatus query per tick while the link is idle. A
// pending request owns the link, so the poll skips that tick rather than
// contend with a run.
func (c *Connection) statusPoll() bool {
	if !c.stateMgr.IsConnected() {
		return false
	}

	resp, err := c.SendAndAwait(c.ctx, efem.NewCommand("GetStatus", "EFEM"), 0)
	if err != nil {
		if errors.Is(err, efem.ErrRequestPending) {
			return true
		}

		if !c.shutdown.Load() {
			c.logger.Warn("status poll failed", "method", "statusPoll", "error", err)
		}

		return false
	}

	if !resp.OK() {
		c.logger.Warn("status poll returned non-OK", "method", "statusPoll", "kind", resp.Kind)
	}

	return true
}

// receiveFrame reads one frame from the scanner. Returning false stops the
// receiver task, which triggers receiverCancel.
func (c *Connection) receiveFrame(scanner *bufio.Scanner) bool {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil && !c.shutdown.Load() {
			c.logger.Error("receive failed", "method", "receiveFrame", "error", err)
		}

		return false
	}

	c.handleFrame(scanner.Text())

	return true
}

// receiverCancel runs when the receiver task exits: the socket is gone or
// failed, so tear the whole link down unless Close is already doing it.
func (c *Connection) receiverCancel() {
	c.teardownAsync()
}

// senderTask writes one frame to the wire with the configured write deadline.
func (c *Connection) senderTask(frame string) bool {
	c.connMutex.Lock()
	conn := c.conn
	c.connMutex.Unlock()

	if conn == nil {
		return false
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout))

	if _, err := conn.Write([]byte(frame)); err != nil {
		c.metrics.incSendErrCount()

		if !c.shutdown.Load() {
			c.logger.Error("send failed", "method", "senderTask", "error", err)
			c.abortPending(efem.ErrConnClosed)
			c.teardownAsync()
		}

		return false
	}

	c.metrics.incFrameSendCount()
	c.logger.Debug("sent frame", "method", "senderTask", "frame", frame)

	return true
}

// handleFrame parses one received frame and routes it: events go to the
// event mailbox, everything else to the correlator.
func (c *Connection) handleFrame(frame string) {
	c.metrics.incFrameRecvCount()
	c.logger.Debug("received frame", "method", "handleFrame", "frame", frame)

	msg, err := efem.ParseMessage(frame)
	if err != nil {
		c.metrics.incProtocolErrCount()
		c.logger.Warn("malformed frame dropped", "method", "handleFrame", "frame", frame, "error", err)

		return
	}

	if msg.IsEvent() {
		c.metrics.incEventRecvCount()

		// never block the receive task on a slow consumer
		select {
		case c.eventChan <- msg.Event():
		default:
			c.logger.Warn("event mailbox full, event dropped", "method", "handleFrame", "frame", frame)
		}

		return
	}

	echo := strings.TrimPrefix(msg.Raw, efem.FrameAltPrefix)
	echo = strings.TrimPrefix(echo, efem.FramePrefix)
	c.notifier.OnLog("< " + strings.TrimSuffix(echo, efem.FrameTerminator))
	c.dispatchResponse(msg)
}

// handleEvent forwards one unsolicited event to the Notifier.
func (c *Connection) handleEvent(ev *efem.Event) {
	c.notifier.OnLog("< " + ev.String())
	c.notifier.OnEvent(ev)
}

// linkStateHandler relays state changes to the Notifier and fails the
// in-flight request when the link goes down, so no caller waits out a full
// reply deadline on a dead link.
func (c *Connection) linkStateHandler(prevState efem.LinkState, newState efem.LinkState) {
	c.logger.Debug("link state changed", "prevState", prevState, "newState", newState)
	c.notifier.OnStatusChanged(newState)

	if newState.IsDisconnected() || newState.IsError() {
		c.abortPending(efem.ErrConnClosed)
	}
}

// teardownAsync closes the link from a task goroutine. The close runs in its
// own goroutine because closeConn waits for the tasks to terminate, and the
// caller is one of them.
func (c *Connection) teardownAsync() {
	if c.shutdown.Load() {
		return
	}

	if c.opState.ToClosing() {
		go c.closeConn()
	}
}

// closeConn closes the socket, stops the tasks and waits for them to exit,
// bounded by the close timeout. Afterwards the session context is retired and
// a fresh one created so the link can be reopened.
func (c *Connection) closeConn() {
	c.closeMutex.Lock()
	defer c.closeMutex.Unlock()

	if c.opState.IsClosed() {
		return
	}
	c.opState.ToClosing()

	// retire the session context first: it unblocks enqueueFrame and any
	// runner watching Done before the tasks wind down
	c.ctxCancel()

	if c.cfg.StatusPollInterval() > 0 {
		_ = c.taskMgr.StopInterval("statusPoll")
	}

	c.connMutex.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connMutex.Unlock()

	c.taskMgr.Stop()

	done := make(chan struct{})
	go func() {
		c.taskMgr.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.cfg.closeConnTimeout):
		c.logger.Error("timeout waiting for link tasks to terminate", "method", "closeConn")
	}

	c.stateMgr.ToDisconnected()
	c.opState.Set(ClosedState)
	c.createContext()

	c.logger.Debug("EFEM link closed", "method", "closeConn")
}
