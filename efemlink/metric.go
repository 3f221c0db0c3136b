package efemlink

import "sync/atomic"

// ConnectionMetrics records wire-level counters for one Connection. All
// counters are monotonically increasing and safe for concurrent use.
type ConnectionMetrics struct {
	frameSendCount atomic.Uint64
	frameRecvCount atomic.Uint64
	eventRecvCount atomic.Uint64
	sendErrCount   atomic.Uint64
	protoErrCount  atomic.Uint64
	timeoutCount   atomic.Uint64
}

// FrameSendCount returns the number of frames written to the wire.
func (m *ConnectionMetrics) FrameSendCount() uint64 {
	return m.frameSendCount.Load()
}

// FrameRecvCount returns the number of complete frames received.
func (m *ConnectionMetrics) FrameRecvCount() uint64 {
	return m.frameRecvCount.Load()
}

// EventRecvCount returns the number of unsolicited events received.
func (m *ConnectionMetrics) EventRecvCount() uint64 {
	return m.eventRecvCount.Load()
}

// SendErrCount returns the number of failed socket writes.
func (m *ConnectionMetrics) SendErrCount() uint64 {
	return m.sendErrCount.Load()
}

// ProtocolErrCount returns the number of frames that failed to parse or
// arrived with no matching request.
func (m *ConnectionMetrics) ProtocolErrCount() uint64 {
	return m.protoErrCount.Load()
}

// TimeoutCount returns the number of requests that expired with no response.
func (m *ConnectionMetrics) TimeoutCount() uint64 {
	return m.timeoutCount.Load()
}

func (m *ConnectionMetrics) incFrameSendCount() {
	m.frameSendCount.Add(1)
}

func (m *ConnectionMetrics) incFrameRecvCount() {
	m.frameRecvCount.Add(1)
}

func (m *ConnectionMetrics) incEventRecvCount() {
	m.eventRecvCount.Add(1)
}

func (m *ConnectionMetrics) incSendErrCount() {
	m.sendErrCount.Add(1)
}

func (m *ConnectionMetrics) incProtocolErrCount() {
	m.protoErrCount.Add(1)
}

func (m *ConnectionMetrics) incTimeoutCount() {
	m.timeoutCount.Add(1)
}
