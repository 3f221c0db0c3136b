package flow

import (
	"context"
	"time"

	"github.com/arloliu/go-efem/efem"
)

// Gateway is the command surface the runners drive. *efemlink.Connection
// satisfies it.
type Gateway interface {
	// SendAndAwait sends one command and blocks until its response, the
	// reply deadline (timeout <= 0 selects the configured default for the
	// command name), a link failure, or ctx cancellation.
	SendAndAwait(ctx context.Context, cmd efem.Command, timeout time.Duration) (*efem.Response, error)

	// Send enqueues one command without waiting for a response.
	Send(cmd efem.Command) error
}

// linkSession is the optional session signal a Gateway may expose.
// *efemlink.Connection does; its Done channel closes when the link session
// ends, whether by Close or by a remote disconnect.
type linkSession interface {
	Done() <-chan struct{}
}

// watchLink cancels the run when the gateway's link session ends, so a
// disconnect acts as an implicit stop even while the run is parked on an
// operator confirmation or a script wait rather than an in-flight command.
// The watcher exits with the run.
func watchLink(ctx context.Context, cancel context.CancelFunc, gw Gateway) {
	session, ok := gw.(linkSession)
	if !ok {
		return
	}

	go func() {
		select {
		case <-session.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
}
