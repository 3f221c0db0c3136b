package efem

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-efem/logger"
)

func TestLinkStateTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewLinkStateMgr(ctx, logger.GetLogger())
	require.True(t, mgr.IsDisconnected())

	// connected is only reachable through connecting
	require.ErrorIs(t, mgr.ToConnected(), ErrInvalidTransition)

	require.NoError(t, mgr.ToConnecting())
	require.True(t, mgr.State().IsConnecting())

	// repeated transition is a no-op
	require.NoError(t, mgr.ToConnecting())

	require.NoError(t, mgr.ToConnected())
	require.True(t, mgr.IsConnected())

	mgr.ToDisconnected()
	require.True(t, mgr.IsDisconnected())

	mgr.ToError()
	require.True(t, mgr.State().IsError())

	// error state allows a reconnect attempt
	require.NoError(t, mgr.ToConnecting())
}

func TestLinkStateHandlerOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var observed atomic.Value

	mgr := NewLinkStateMgr(ctx, logger.GetLogger(), func(prev, cur LinkState) {
		// on disconnect the state must already be final when handlers run
		if cur.IsDisconnected() {
			observed.Store(cur)
		}
	})

	require.NoError(t, mgr.ToConnecting())
	require.NoError(t, mgr.ToConnected())
	mgr.ToDisconnected()

	state, ok := observed.Load().(LinkState)
	require.True(t, ok)
	require.True(t, state.IsDisconnected())

	// no handler invocation when the state does not change
	observed.Store(ConnectedState)
	mgr.ToDisconnected()
	state, _ = observed.Load().(LinkState)
	require.True(t, state.IsConnected())
}

func TestLinkStateWaitState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewLinkStateMgr(ctx, logger.GetLogger())

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = mgr.ToConnecting()
		_ = mgr.ToConnected()
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, mgr.WaitState(waitCtx, ConnectedState))

	// waiting for a state that never arrives times out with the ctx error
	shortCtx, shortCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer shortCancel()
	require.ErrorIs(t, mgr.WaitState(shortCtx, ErrorState), context.DeadlineExceeded)
}

func TestLinkStateAsyncTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewLinkStateMgr(ctx, logger.GetLogger())
	require.NoError(t, mgr.ToConnecting())
	require.NoError(t, mgr.ToConnected())

	mgr.ToDisconnectedAsync()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, mgr.WaitState(waitCtx, DisconnectedState))
}
