package flow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-efem/efem"
)

// fakeGateway answers commands from a scripted handler and records every
// command it saw, in order. Closing done simulates the link session ending.
type fakeGateway struct {
	mu      sync.Mutex
	sent    []string
	handler func(cmd efem.Command) *efem.Response
	done    chan struct{}
}

func (g *fakeGateway) Done() <-chan struct{} { return g.done }

func (g *fakeGateway) SendAndAwait(ctx context.Context, cmd efem.Command, timeout time.Duration) (*efem.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.record(cmd)

	if g.handler != nil {
		if resp := g.handler(cmd); resp != nil {
			return resp, nil
		}
	}

	return &efem.Response{Kind: efem.RespOK}, nil
}

func (g *fakeGateway) Send(cmd efem.Command) error {
	g.record(cmd)
	return nil
}

func (g *fakeGateway) record(cmd efem.Command) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, cmd.String())
}

func (g *fakeGateway) commands() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.sent...)
}

func okResp(payload ...string) *efem.Response {
	return &efem.Response{Kind: efem.RespOK, Payload: payload}
}

func errResp(code string) *efem.Response {
	return &efem.Response{Kind: efem.RespError, Code: code}
}

// flowRecorder captures everything a run reports and answers confirmation
// requests through the bound submit function.
type flowRecorder struct {
	efem.NopNotifier

	mu       sync.Mutex
	logs     []string
	steps    []int
	confirms []string
	finished int

	submit  func(bool)
	confirm func(kind string) bool // nil means confirm everything
}

func (n *flowRecorder) OnLog(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = append(n.logs, text)
}

func (n *flowRecorder) OnStepChanged(step int, description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.steps = append(n.steps, step)
}

func (n *flowRecorder) OnRunFinished(status int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = status
}

func (n *flowRecorder) OnConfirmationRequested(kind string, data string) {
	n.mu.Lock()
	n.confirms = append(n.confirms, kind+": "+data)
	confirm := n.confirm
	submit := n.submit
	n.mu.Unlock()

	answer := true
	if confirm != nil {
		answer = confirm(kind)
	}
	if submit != nil {
		submit(answer)
	}
}

func (n *flowRecorder) logContains(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, line := range n.logs {
		if strings.Contains(line, substr) {
			return true
		}
	}

	return false
}

// mapPayload builds a 25-field GetMapResult payload with the given 1-based
// slots occupied. The wire lists slot 25 first.
func mapPayload(occupied ...int) []string {
	fields := make([]string, efem.SlotCount)
	for i := range fields {
		fields[i] = "0"
	}
	for _, slot := range occupied {
		fields[efem.SlotCount-slot] = "1"
	}

	return fields
}
