package efem

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-efem/logger"
)

// LinkState represents the stages of the equipment link.
type LinkState uint32

// Link states.
const (
	// DisconnectedState indicates that no TCP connection is established.
	DisconnectedState LinkState = iota
	// ConnectingState indicates that a connection attempt is in progress.
	ConnectingState
	// ConnectedState indicates that the link is open and frames may be exchanged.
	ConnectedState
	// ErrorState indicates that the last connection attempt or session failed.
	ErrorState
)

// IsDisconnected returns if the current state is disconnected.
func (s LinkState) IsDisconnected() bool { return s == DisconnectedState }

// IsConnecting returns if the current state is connecting.
func (s LinkState) IsConnecting() bool { return s == ConnectingState }

// IsConnected returns if the current state is connected.
func (s LinkState) IsConnected() bool { return s == ConnectedState }

// IsError returns if the current state is the error state.
func (s LinkState) IsError() bool { return s == ErrorState }

// String returns string representation of the current state.
func (s LinkState) String() string {
	switch s {
	case DisconnectedState:
		return "disconnected"
	case ConnectingState:
		return "connecting"
	case ConnectedState:
		return "connected"
	case ErrorState:
		return "error"
	default:
		return "unknown"
	}
}

// LinkStateChangeHandler is invoked when the link state changes.
//
// Note: the handler is invoked in blocking mode. Take care with long-running
// implementations.
type LinkStateChangeHandler func(prevState LinkState, newState LinkState)

// LinkStateMgr manages the state of an equipment link.
//
// It provides methods for managing state transitions and notifying listeners
// of state changes. The state transitions are thread safe in concurrent
// environments.
type LinkStateMgr struct {
	mu               sync.Mutex
	ctx              context.Context
	cond             *sync.Cond
	state            atomic.Uint32
	logger           logger.Logger
	asyncStateChange chan LinkState
	handlers         []LinkStateChangeHandler
}

// NewLinkStateMgr creates a new LinkStateMgr instance, initializing it to
// DisconnectedState.
//
// It accepts optional LinkStateChangeHandler functions that will be invoked
// when the link state changes.
func NewLinkStateMgr(ctx context.Context, l logger.Logger, handlers ...LinkStateChangeHandler) *LinkStateMgr {
	mgr := &LinkStateMgr{
		ctx:              ctx,
		logger:           l,
		asyncStateChange: make(chan LinkState, 10),
		handlers:         make([]LinkStateChangeHandler, 0, len(handlers)),
	}

	if mgr.logger == nil {
		mgr.logger = logger.GetLogger()
	}

	mgr.handlers = append(mgr.handlers, handlers...)
	mgr.state.Store(uint32(DisconnectedState))
	mgr.cond = sync.NewCond(&mgr.mu)

	go mgr.asyncStateChangeTask()

	return mgr
}

// State returns the current link state.
func (mgr *LinkStateMgr) State() LinkState {
	return LinkState(mgr.state.Load())
}

// AddHandler adds one or more LinkStateChangeHandler functions to be invoked
// on state changes.
func (mgr *LinkStateMgr) AddHandler(handlers ...LinkStateChangeHandler) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.handlers = append(mgr.handlers, handlers...)
}

// WaitState waits for the link state to reach the specified state or until
// the context is done. It returns nil if the desired state is reached, or an
// error if the context is canceled or times out.
func (mgr *LinkStateMgr) WaitState(ctx context.Context, state LinkState) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		mgr.cond.Broadcast()
	})
	defer stopFunc()

	for mgr.State() != state {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			mgr.cond.Wait()
		}
	}

	return nil
}

// ToConnecting transitions the link state to ConnectingState.
//
// This transition is only allowed from DisconnectedState or ErrorState.
// If the state is already ConnectingState, the function is a no-op.
func (mgr *LinkStateMgr) ToConnecting() error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	curState := mgr.State()
	if curState.IsConnecting() {
		return nil
	}
	if !curState.IsDisconnected() && !curState.IsError() {
		return ErrInvalidTransition
	}

	mgr.invokeHandlers(curState, ConnectingState)
	mgr.setState(ConnectingState)

	return nil
}

// ToConnected transitions the link state to ConnectedState.
//
// This transition is only allowed from ConnectingState.
// If the state is already ConnectedState, the function is a no-op.
func (mgr *LinkStateMgr) ToConnected() error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	curState := mgr.State()
	if curState.IsConnected() {
		return nil
	}
	if !curState.IsConnecting() {
		return ErrInvalidTransition
	}

	mgr.invokeHandlers(curState, ConnectedState)
	mgr.setState(ConnectedState)

	return nil
}

// ToDisconnected transitions the link state to DisconnectedState.
// This transition is allowed from any state and represents a disconnection or
// a reset of the link.
func (mgr *LinkStateMgr) ToDisconnected() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	curState := mgr.State()
	if curState == DisconnectedState {
		return
	}

	// change state to disconnected BEFORE the handlers run, so anything the
	// handlers unblock observes the final state
	mgr.setState(DisconnectedState)
	mgr.invokeHandlers(curState, DisconnectedState)
}

// ToError transitions the link state to ErrorState. This transition is
// allowed from any state.
func (mgr *LinkStateMgr) ToError() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	curState := mgr.State()
	if curState == ErrorState {
		return
	}

	mgr.setState(ErrorState)
	mgr.invokeHandlers(curState, ErrorState)
}

// ToDisconnectedAsync transitions the link state to DisconnectedState
// asynchronously, from a goroutine that must not block on the handlers
// (e.g. the receive task reporting a remote close).
func (mgr *LinkStateMgr) ToDisconnectedAsync() {
	mgr.changeStateAsync(DisconnectedState)
}

// ToErrorAsync transitions the link state to ErrorState asynchronously.
func (mgr *LinkStateMgr) ToErrorAsync() {
	mgr.changeStateAsync(ErrorState)
}

// IsConnected returns if the current state is connected.
func (mgr *LinkStateMgr) IsConnected() bool {
	return mgr.State().IsConnected()
}

// IsDisconnected returns if the current state is disconnected.
func (mgr *LinkStateMgr) IsDisconnected() bool {
	return mgr.State().IsDisconnected()
}

// setState atomically sets the current state and broadcasts a signal to any
// waiting goroutines.
func (mgr *LinkStateMgr) setState(newState LinkState) {
	mgr.state.Store(uint32(newState))
	mgr.cond.Broadcast()
}

// invokeHandlers invokes all registered handlers with the previous and new states.
func (mgr *LinkStateMgr) invokeHandlers(prevState LinkState, newState LinkState) {
	for _, handler := range mgr.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}

func (mgr *LinkStateMgr) changeStateAsync(state LinkState) {
	if mgr.State() == state {
		return
	}

	select {
	case mgr.asyncStateChange <- state:
	case <-mgr.ctx.Done():
	}
}

// asyncStateChangeTask handles state changing in the background.
func (mgr *LinkStateMgr) asyncStateChangeTask() {
	for {
		select {
		case <-mgr.ctx.Done():
			return

		case desiredState := <-mgr.asyncStateChange:
			if desiredState == mgr.State() {
				break
			}

			var err error
			switch desiredState {
			case DisconnectedState:
				mgr.ToDisconnected()
			case ErrorState:
				mgr.ToError()
			case ConnectingState:
				err = mgr.ToConnecting()
			case ConnectedState:
				err = mgr.ToConnected()
			}

			if err != nil {
				mgr.logger.Error("async link state transition failed",
					"method", "asyncStateChangeTask",
					"curState", mgr.State(), "desiredState", desiredState,
					"error", err,
				)
				if errors.Is(err, ErrInvalidTransition) {
					mgr.asyncStateChange <- DisconnectedState
				}
			}
		}
	}
}
