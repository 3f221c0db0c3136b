package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/errcat"
	"github.com/arloliu/go-efem/internal/pool"
	"github.com/arloliu/go-efem/logger"
)

// defaultPollInterval is the wait-slice length; a stop request is honored
// within one slice, not at the end of the full wait.
const defaultPollInterval = 100 * time.Millisecond

// defaultCyclePause separates two cycles of a looping run.
const defaultCyclePause = 1 * time.Second

// SequenceRunner executes a user-authored script against the Gateway,
// aborting on the first device error, timeout or send failure. At most one
// run may be active at a time.
type SequenceRunner struct {
	gw       Gateway
	logger   logger.Logger
	notifier efem.Notifier
	catalog  *errcat.Catalog

	settleDelay  time.Duration
	cyclePause   time.Duration
	pollInterval time.Duration

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// RunnerOption configures a SequenceRunner.
type RunnerOption func(*SequenceRunner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *SequenceRunner) { r.logger = l }
}

// WithRunnerNotifier attaches the collaborator receiving log lines and the
// final run status.
func WithRunnerNotifier(n efem.Notifier) RunnerOption {
	return func(r *SequenceRunner) { r.notifier = n }
}

// WithRunnerSettleDelay sets the pause after each successful command.
func WithRunnerSettleDelay(d time.Duration) RunnerOption {
	return func(r *SequenceRunner) { r.settleDelay = d }
}

// WithRunnerCatalog sets the error catalog used to describe device errors.
func WithRunnerCatalog(cat *errcat.Catalog) RunnerOption {
	return func(r *SequenceRunner) { r.catalog = cat }
}

// NewSequenceRunner creates a runner driving the given gateway.
func NewSequenceRunner(gw Gateway, opts ...RunnerOption) *SequenceRunner {
	r := &SequenceRunner{
		gw:           gw,
		logger:       logger.GetLogger(),
		notifier:     efem.NopNotifier{},
		catalog:      errcat.Default(),
		settleDelay:  800 * time.Millisecond,
		cyclePause:   defaultCyclePause,
		pollInterval: defaultPollInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes the script and blocks until it terminates. The returned
// status is one of StatusCompleted, StatusError or StatusStopped and is also
// reported through OnRunFinished. It fails with efem.ErrRunActive when a
// run is already active.
//
// When cycle is set the script restarts from the top after a short pause
// until stopped or aborted.
func (r *SequenceRunner) Run(ctx context.Context, steps []SequenceStep, cycle bool) (int, error) {
	if !r.running.CompareAndSwap(false, true) {
		return StatusIdle, efem.ErrRunActive
	}
	defer r.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	watchLink(runCtx, cancel, r.gw)

	status := r.runScript(runCtx, steps, cycle)

	r.logger.Info("sequence run finished", "status", status)
	r.notifier.OnRunFinished(status)

	return status, nil
}

// Stop requests a cooperative stop of the active run. The run terminates at
// the next check point and reports StatusStopped.
func (r *SequenceRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
}

// Running reports whether a run is active.
func (r *SequenceRunner) Running() bool {
	return r.running.Load()
}

func (r *SequenceRunner) runScript(ctx context.Context, steps []SequenceStep, cycle bool) int {
	for {
		for i, step := range steps {
			if err := r.runStep(ctx, i, step); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, efem.ErrStopRequested) {
					r.notifier.OnLog("sequence stopped")
					return StatusStopped
				}

				r.logger.Error("sequence aborted", "line", i+1, "error", err)
				r.notifier.OnLog(fmt.Sprintf("sequence aborted at line %d: %v", i+1, err))

				return StatusError
			}
		}

		if !cycle {
			return StatusCompleted
		}

		r.notifier.OnLog("sequence cycle restarting")
		if err := r.waitInterruptible(ctx, r.cyclePause); err != nil {
			return StatusStopped
		}
	}
}

func (r *SequenceRunner) runStep(ctx context.Context, index int, step SequenceStep) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch step.Kind {
	case StepComment:
		if step.Raw != "" {
			r.notifier.OnLog("comment: " + step.Raw)
		}

		return nil

	case StepWait:
		r.notifier.OnLog(fmt.Sprintf("waiting %v", step.Wait))
		return r.waitInterruptible(ctx, step.Wait)

	case StepInvoke:
		return r.invoke(ctx, step.Command)

	default:
		return fmt.Errorf("line %d: unknown step kind %v", index+1, step.Kind)
	}
}

// invoke sends one command and aborts the run on anything but an OK reply.
func (r *SequenceRunner) invoke(ctx context.Context, cmd efem.Command) error {
	resp, err := r.gw.SendAndAwait(ctx, cmd, 0)
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd.String(), err)
	}

	switch resp.Kind {
	case efem.RespOK:
		return r.waitInterruptible(ctx, r.settleDelay)

	case efem.RespError:
		return fmt.Errorf("command %s failed: %s", cmd.String(), r.catalog.Describe(resp.Code))

	case efem.RespTimeout:
		return fmt.Errorf("command %s: no response within deadline", cmd.String())

	default:
		return fmt.Errorf("command %s: unexpected response kind %v", cmd.String(), resp.Kind)
	}
}

// waitInterruptible sleeps for d in pollInterval slices so a stop request
// takes effect within one slice.
func (r *SequenceRunner) waitInterruptible(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		slice := remaining
		if slice > r.pollInterval {
			slice = r.pollInterval
		}

		timer := pool.GetTimer(slice)
		select {
		case <-ctx.Done():
			pool.PutTimer(timer)
			return ctx.Err()
		case <-timer.C:
			pool.PutTimer(timer)
		}
	}
}
