package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/arloliu/go-efem/efem"
)

// consolePrompter implements efem.Notifier for the terminal: it prints log
// lines, status and step changes, and answers confirmation requests by
// prompting the operator for y/n on stdin.
type consolePrompter struct {
	submit atomic.Pointer[func(bool)]
}

// bindSubmit attaches the active run's confirmation sink.
func (p *consolePrompter) bindSubmit(fn func(bool)) {
	p.submit.Store(&fn)
}

func (p *consolePrompter) OnLog(text string) {
	fmt.Println(text)
}

func (p *consolePrompter) OnStatusChanged(state efem.LinkState) {
	fmt.Printf("[link] %s\n", state)
}

func (p *consolePrompter) OnEvent(ev *efem.Event) {
	fmt.Printf("[event] %s\n", ev.String())
}

func (p *consolePrompter) OnStepChanged(step int, description string) {
	fmt.Printf("[step %d] %s\n", step, description)
}

func (p *consolePrompter) OnConfirmationRequested(kind, data string) {
	submit := p.submit.Load()
	if submit == nil {
		return
	}

	// prompt in its own goroutine so the notifier never blocks the engine
	go func() {
		fmt.Printf("confirm %s %q [y/N]: ", kind, data)

		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		answer := err == nil && strings.EqualFold(strings.TrimSpace(line), "y")

		(*submit)(answer)
	}()
}

func (p *consolePrompter) OnRunFinished(status int) {
	fmt.Printf("[run finished] status=%d\n", status)
}
