package efemlink

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-efem/efem"
)

// fakeDevice is an in-process EFEM controller endpoint: it accepts
// connections one at a time, surfaces received frames, and writes whatever a
// test tells it to write.
type fakeDevice struct {
	ln     net.Listener
	frames chan string

	mu   sync.Mutex
	conn net.Conn
}

func startFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &fakeDevice{
		ln:     ln,
		frames: make(chan string, 16),
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			d.mu.Lock()
			d.conn = conn
			d.mu.Unlock()

			scanner := bufio.NewScanner(conn)
			scanner.Split(splitFrames)
			for scanner.Scan() {
				d.frames <- scanner.Text()
			}
		}
	}()

	t.Cleanup(func() { d.close() })

	return d
}

func (d *fakeDevice) port() int {
	return d.ln.Addr().(*net.TCPAddr).Port
}

// recv returns the next frame the device received.
func (d *fakeDevice) recv(t *testing.T) string {
	t.Helper()

	select {
	case frame := <-d.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("device received no frame")
		return ""
	}
}

// send writes one frame to the currently connected client.
func (d *fakeDevice) send(t *testing.T, frame string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		conn := d.conn
		d.mu.Unlock()

		if conn != nil {
			_, err := conn.Write([]byte(frame))
			require.NoError(t, err)

			return
		}

		if time.Now().After(deadline) {
			t.Fatal("no client connected")
			return
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func (d *fakeDevice) close() {
	_ = d.ln.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
}

// recordingNotifier captures status changes, events and log lines.
type recordingNotifier struct {
	efem.NopNotifier
	statuses chan efem.LinkState
	events   chan *efem.Event
	logs     chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		statuses: make(chan efem.LinkState, 16),
		events:   make(chan *efem.Event, 16),
		logs:     make(chan string, 32),
	}
}

func (n *recordingNotifier) OnStatusChanged(state efem.LinkState) { n.statuses <- state }
func (n *recordingNotifier) OnEvent(ev *efem.Event)               { n.events <- ev }

func (n *recordingNotifier) OnLog(text string) {
	select {
	case n.logs <- text:
	default:
	}
}

func newTestLink(t *testing.T, notifier efem.Notifier, opts ...ConnOption) (*Connection, *fakeDevice) {
	t.Helper()

	device := startFakeDevice(t)

	allOpts := append([]ConnOption{WithNotifier(notifier)}, opts...)
	cfg, err := NewConnectionConfig("127.0.0.1", device.port(), allOpts...)
	require.NoError(t, err)

	conn, err := NewConnection(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, conn.Open())

	t.Cleanup(func() { _ = conn.Close() })

	return conn, device
}

func TestConnectionSendAndAwaitOK(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{})

	go func() {
		_ = device.recv(t)
		device.send(t, "ReadFoupID,Loadport1,OK,ABC123$")
	}()

	resp, err := conn.SendAndAwait(context.Background(), efem.NewCommand("ReadFoupID", "Loadport1"), 0)
	require.NoError(t, err)
	require.Equal(t, efem.RespOK, resp.Kind)
	require.Equal(t, []string{"ABC123"}, resp.Payload)

	// the slot is free again for the next command
	go func() {
		_ = device.recv(t)
		device.send(t, "Load,Loadport1,OK$")
	}()

	resp, err = conn.SendAndAwait(context.Background(), efem.NewCommand("Load", "Loadport1"), 0)
	require.NoError(t, err)
	require.True(t, resp.OK())

	require.Equal(t, uint64(2), conn.Metrics().FrameSendCount())
	require.Equal(t, uint64(2), conn.Metrics().FrameRecvCount())
}

func TestConnectionDeviceError(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{})

	go func() {
		frame := device.recv(t)
		require.Equal(t, "#Load,Loadport1$", frame)
		device.send(t, "Load,Loadport1,Error,5006$")
	}()

	resp, err := conn.SendAndAwait(context.Background(), efem.NewCommand("Load", "Loadport1"), 0)
	require.NoError(t, err)
	require.Equal(t, efem.RespError, resp.Kind)
	require.Equal(t, "5006", resp.Code)
}

func TestConnectionTimeoutThenLateFrame(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{},
		WithCommandTimeoutClass("Load", 200*time.Millisecond))

	_ = device // device stays silent

	resp, err := conn.SendAndAwait(context.Background(), efem.NewCommand("Load", "Loadport1"), 0)
	require.NoError(t, err)
	require.Equal(t, efem.RespTimeout, resp.Kind)
	require.Equal(t, uint64(1), conn.Metrics().TimeoutCount())

	// a frame arriving after the deadline is unmatched and dropped
	device.send(t, "Load,Loadport1,OK$")

	go func() {
		_ = device.recv(t) // the timed-out Load
		_ = device.recv(t) // GetStatus
		device.send(t, "GetStatus,EFEM,OK,1,1,1,1,1,1,1,1,1,0,1$")
	}()

	resp, err = conn.SendAndAwait(context.Background(), efem.NewCommand("GetStatus", "EFEM"), 0)
	require.NoError(t, err)
	require.Equal(t, efem.RespOK, resp.Kind)
	require.Len(t, resp.Payload, 11)
}

func TestConnectionNeitherTokenKeepsWaiting(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{})

	go func() {
		_ = device.recv(t)
		// a name-matched frame without OK/Error does not resolve the request
		device.send(t, "Load,Loadport1,Processing$")
		time.Sleep(100 * time.Millisecond)
		device.send(t, "Load,Loadport1,OK$")
	}()

	resp, err := conn.SendAndAwait(context.Background(), efem.NewCommand("Load", "Loadport1"), 0)
	require.NoError(t, err)
	require.Equal(t, efem.RespOK, resp.Kind)
}

func TestConnectionEventWhilePending(t *testing.T) {
	notifier := newRecordingNotifier()
	conn, device := newTestLink(t, notifier)

	go func() {
		_ = device.recv(t)
		device.send(t, "Event,Loadport1,FoupPlace$")
		device.send(t, "GetStatus,EFEM,OK,1,1,1,1,1,1,1,1,1,0,1$")
	}()

	resp, err := conn.SendAndAwait(context.Background(), efem.NewCommand("GetStatus", "EFEM"), 0)
	require.NoError(t, err)
	require.True(t, resp.OK())

	select {
	case ev := <-notifier.events:
		require.Equal(t, "Loadport1", ev.Source)
		require.Equal(t, "FoupPlace", ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event not forwarded")
	}

	require.Equal(t, uint64(1), conn.Metrics().EventRecvCount())
}

func TestConnectionSecondRequestRejected(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = conn.SendAndAwait(context.Background(), efem.NewCommand("Load", "Loadport1"), 0)
	}()

	_ = device.recv(t) // the first command is in flight

	_, err := conn.SendAndAwait(context.Background(), efem.NewCommand("GetStatus", "EFEM"), 0)
	require.ErrorIs(t, err, efem.ErrRequestPending)

	device.send(t, "Load,Loadport1,OK$")
	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("first request not resolved")
	}
}

func TestConnectionDisconnectUnblocksPending(t *testing.T) {
	notifier := newRecordingNotifier()
	conn, device := newTestLink(t, notifier)

	errChan := make(chan error, 1)
	go func() {
		_, err := conn.SendAndAwait(context.Background(), efem.NewCommand("Load", "Loadport1"), 0)
		errChan <- err
	}()

	_ = device.recv(t)
	device.close()

	// the pending request fails well before the 25s command deadline
	select {
	case err := <-errChan:
		require.ErrorIs(t, err, efem.ErrConnClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not unblocked by disconnect")
	}

	// exactly one disconnected notification
	require.Eventually(t, func() bool {
		return conn.State().IsDisconnected()
	}, 2*time.Second, 10*time.Millisecond)

	disconnects := 0
	for done := false; !done; {
		select {
		case state := <-notifier.statuses:
			if state.IsDisconnected() {
				disconnects++
			}
		default:
			done = true
		}
	}
	require.Equal(t, 1, disconnects)
}

func TestConnectionLifecycle(t *testing.T) {
	conn, _ := newTestLink(t, efem.NopNotifier{})

	require.True(t, conn.IsConnected())
	require.ErrorIs(t, conn.Open(), efem.ErrAlreadyConnected)

	require.NoError(t, conn.Close())
	require.True(t, conn.State().IsDisconnected())

	_, err := conn.SendAndAwait(context.Background(), efem.NewCommand("GetStatus", "EFEM"), 0)
	require.ErrorIs(t, err, efem.ErrNotConnected)
}

func TestConnectionReopen(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{})

	require.NoError(t, conn.Close())
	require.True(t, conn.State().IsDisconnected())

	// a closed link can be opened again and serve requests
	require.NoError(t, conn.Open())
	require.True(t, conn.IsConnected())

	go func() {
		_ = device.recv(t)
		device.send(t, "GetStatus,EFEM,OK,1,1,1,1,1,1,1,1,1,0,1$")
	}()

	resp, err := conn.SendAndAwait(context.Background(), efem.NewCommand("GetStatus", "EFEM"), 0)
	require.NoError(t, err)
	require.True(t, resp.OK())

	require.NoError(t, conn.Close())
}

func TestConnectionDoneSignalsClose(t *testing.T) {
	conn, _ := newTestLink(t, efem.NopNotifier{})

	done := conn.Done()
	select {
	case <-done:
		t.Fatal("session signaled before close")
	default:
	}

	require.NoError(t, conn.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session not signaled by close")
	}
}

func TestConnectionDoneSignalsDisconnect(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{})

	done := conn.Done()
	device.close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session not signaled by disconnect")
	}

	require.Eventually(t, func() bool {
		return conn.State().IsDisconnected()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionStatusPoll(t *testing.T) {
	conn, device := newTestLink(t, efem.NopNotifier{},
		WithStatusPollInterval(100*time.Millisecond))

	// the poll queries on its own, with no caller driving the link
	for i := 0; i < 2; i++ {
		frame := device.recv(t)
		require.Equal(t, "#GetStatus,EFEM$", frame)
		device.send(t, "GetStatus,EFEM,OK,1,1,1,1,1,1,1,1,1,0,1$")
	}

	require.NoError(t, conn.Close())

	// drain anything already in flight, then the polling must have stopped
	time.Sleep(150 * time.Millisecond)
drained:
	for {
		select {
		case <-device.frames:
		default:
			break drained
		}
	}

	select {
	case frame := <-device.frames:
		t.Fatalf("status poll survived close: %s", frame)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestConnectionAltPrefixResponseLog(t *testing.T) {
	notifier := newRecordingNotifier()
	_, device := newTestLink(t, notifier)

	// a teach-pendant echo keeps its frame markers out of the log
	device.send(t, "#@Home,Robot1,OK$")

	select {
	case line := <-notifier.logs:
		require.Equal(t, "< Home,Robot1,OK", line)
	case <-time.After(2 * time.Second):
		t.Fatal("response not logged")
	}
}

func TestConnectionTimeoutClasses(t *testing.T) {
	conn, _ := newTestLink(t, efem.NopNotifier{},
		WithCommandTimeoutClass("Alignment", 40*time.Second))

	require.Equal(t, conn.cfg.StatusTimeout(), conn.timeoutFor("GetStatus"))
	require.Equal(t, conn.cfg.StatusTimeout(), conn.timeoutFor("CheckWaferPresence"))
	require.Equal(t, conn.cfg.CommandTimeout(), conn.timeoutFor("SmartGet"))
	require.Equal(t, 40*time.Second, conn.timeoutFor("Alignment"))

	conn.SetCommandTimeout("GetStatus", time.Second)
	require.Equal(t, time.Second, conn.timeoutFor("GetStatus"))
}
