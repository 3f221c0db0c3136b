// Package efemlink implements the TCP link to an EFEM controller: transport
// framing, request/response correlation, and the command gateway.
//
// A Connection owns the socket and three goroutines managed by an
// efem.TaskManager: the receiver task splits the byte stream into frames on
// the '$' terminator and classifies each frame, the sender task writes
// queued frames to the wire, and the event pump forwards unsolicited events
// to the attached efem.Notifier in arrival order. The receive path never
// initiates sends and the send path never parses frames.
//
// The wire protocol carries no request identifiers, so the correlator
// enforces the single-outstanding-command rule: at most one PendingRequest
// exists at any instant, and responses are matched to it by command name.
// Registering a second request while one is outstanding fails with
// efem.ErrRequestPending.
//
// Typical usage:
//
//	cfg, err := efemlink.NewConnectionConfig("192.168.1.1", 6000,
//	    efemlink.WithNotifier(ui),
//	    efemlink.WithCommandTimeout(25*time.Second),
//	)
//	conn, err := efemlink.NewConnection(ctx, cfg)
//	if err := conn.Open(); err != nil { ... }
//	defer conn.Close()
//
//	resp, err := conn.SendAndAwait(ctx, efem.NewCommand("GetStatus", "EFEM"), 0)
package efemlink
