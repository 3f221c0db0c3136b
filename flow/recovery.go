package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/errcat"
	"github.com/arloliu/go-efem/logger"
)

// RecoveryFlow restores a safe equipment state after an interrupted recipe:
// it maps the load port, returns any wafer still held by a robot arm or the
// aligner to an empty carrier slot, and re-checks occupancy before signaling
// success (green tower, EFEM Home) or failure (flashing red tower).
//
// Needing an empty slot with none left is fatal for the whole run; there is
// no partial success.
type RecoveryFlow struct {
	gw       Gateway
	logger   logger.Logger
	notifier efem.Notifier
	catalog  *errcat.Catalog

	loadport string
	robot    string
	arm      string
	aligner  string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// recoveryContext is the scratch state of one run: the empty-slot list is
// consumed front to back and never hands the same slot out twice.
type recoveryContext struct {
	emptySlots []int
}

// nextEmptySlot pops the next free carrier slot.
func (rc *recoveryContext) nextEmptySlot() (int, error) {
	if len(rc.emptySlots) == 0 {
		return 0, efem.ErrNoEmptySlot
	}

	slot := rc.emptySlots[0]
	rc.emptySlots = rc.emptySlots[1:]

	return slot, nil
}

// NewRecoveryFlow creates a recovery runner driving the given gateway. It
// shares FlowOption with FlowController; options for devices the recovery
// does not touch (OCR, stage) are accepted and ignored.
func NewRecoveryFlow(gw Gateway, opts ...FlowOption) *RecoveryFlow {
	base := NewFlowController(gw, opts...)

	return &RecoveryFlow{
		gw:       gw,
		logger:   base.logger,
		notifier: base.notifier,
		catalog:  base.catalog,
		loadport: base.loadport,
		robot:    base.robot,
		arm:      base.arm,
		aligner:  base.aligner,
	}
}

// Run executes the recovery procedure and blocks until a terminal state.
// The returned status is StatusRecoveryCompleted, StatusRecoveryError or
// StatusRecoveryStopped and is also reported through OnRunFinished.
func (r *RecoveryFlow) Run(ctx context.Context) (int, error) {
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

	r.notifier.OnStepChanged(101, stepDescription(101))

	status := StatusRecoveryCompleted
	if err := r.recover(runCtx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, efem.ErrStopRequested) {
			status = StatusRecoveryStopped
			r.notifier.OnLog("recovery stopped")
		} else {
			status = StatusRecoveryError
			r.logger.Error("recovery aborted", "error", err)
			r.notifier.OnLog("recovery aborted: " + err.Error())
			r.signalFailure()
		}
	}

	r.notifier.OnStepChanged(status, stepDescription(status))
	r.notifier.OnRunFinished(status)

	return status, nil
}

// Stop requests a cooperative stop of the active run.
func (r *RecoveryFlow) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
}

// Running reports whether a run is active.
func (r *RecoveryFlow) Running() bool {
	return r.running.Load()
}

func (r *RecoveryFlow) recover(ctx context.Context) error {
	// step 102: the controller rejects motion commands outside Remote mode,
	// so a wrong mode surfaces as a device error on the first command
	r.notifier.OnStepChanged(102, stepDescription(102))

	// steps 103..105: map the load port and compute the free slots
	resp, err := r.sendStep(ctx, 103, efem.NewCommand("GetMapResult", r.loadport))
	if err != nil {
		return err
	}

	slotMap, err := efem.ParseSlotMap(resp.Payload)
	if err != nil {
		return fmt.Errorf("step 103: %w", err)
	}

	r.notifier.OnStepChanged(105, stepDescription(105))
	rc := &recoveryContext{emptySlots: slotMap.EmptySlots()}
	r.notifier.OnLog(fmt.Sprintf("empty slots: %v", rc.emptySlots))

	// steps 106..110: clear the robot arms
	arms, err := r.robotOccupancy(ctx, 106)
	if err != nil {
		return err
	}

	r.notifier.OnStepChanged(108, stepDescription(108))
	if err := r.clearArms(ctx, rc, arms); err != nil {
		return err
	}

	// steps 111..117: clear the aligner
	present, err := r.alignerOccupancy(ctx, 111)
	if err != nil {
		return err
	}

	r.notifier.OnStepChanged(113, stepDescription(113))
	if present {
		if err := r.clearAligner(ctx, rc); err != nil {
			return err
		}
	}

	// steps 118..120: re-check both before declaring success
	r.notifier.OnStepChanged(118, stepDescription(118))

	arms, err = r.robotOccupancy(ctx, 118)
	if err != nil {
		return err
	}

	present, err = r.alignerOccupancy(ctx, 118)
	if err != nil {
		return err
	}

	r.notifier.OnStepChanged(120, stepDescription(120))
	if arms.Any() || present {
		return errors.New("equipment still holds a wafer after recovery")
	}

	return r.signalSuccess(ctx)
}

// clearArms returns each held wafer to a free carrier slot, upper arm first.
func (r *RecoveryFlow) clearArms(ctx context.Context, rc *recoveryContext, arms *efem.ArmOccupancy) error {
	type armState struct {
		name string
		held bool
	}

	for _, arm := range []armState{{"UpArm", arms.Upper}, {"LowArm", arms.Lower}} {
		if !arm.held {
			continue
		}

		r.notifier.OnLog(fmt.Sprintf("wafer detected on %s", arm.name))

		slot, err := rc.nextEmptySlot()
		if err != nil {
			return fmt.Errorf("%s holds a wafer: %w", arm.name, err)
		}

		_, err = r.sendStep(ctx, 109,
			efem.NewCommand("SmartPut", r.robot, arm.name, r.loadport, strconv.Itoa(slot)), slot)
		if err != nil {
			return err
		}
	}

	return nil
}

// clearAligner retrieves the aligner wafer and places it into a free slot.
func (r *RecoveryFlow) clearAligner(ctx context.Context, rc *recoveryContext) error {
	r.notifier.OnLog("wafer detected on aligner")

	_, err := r.sendStep(ctx, 114,
		efem.NewCommand("SmartGet", r.robot, r.arm, r.aligner, "1"))
	if err != nil {
		return err
	}

	slot, err := rc.nextEmptySlot()
	if err != nil {
		return fmt.Errorf("aligner wafer retrieved: %w", err)
	}

	_, err = r.sendStep(ctx, 116,
		efem.NewCommand("SmartPut", r.robot, r.arm, r.loadport, strconv.Itoa(slot)), slot)

	return err
}

// robotOccupancy queries which robot arms hold a wafer.
func (r *RecoveryFlow) robotOccupancy(ctx context.Context, num int) (*efem.ArmOccupancy, error) {
	resp, err := r.sendStep(ctx, num, efem.NewCommand("CheckWaferPresence", r.robot))
	if err != nil {
		return nil, err
	}

	arms, err := efem.ParseArmOccupancy(resp.Payload)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", num, err)
	}

	return arms, nil
}

// alignerOccupancy queries whether the aligner holds a wafer.
func (r *RecoveryFlow) alignerOccupancy(ctx context.Context, num int) (bool, error) {
	resp, err := r.sendStep(ctx, num, efem.NewCommand("CheckWaferPresence", r.aligner))
	if err != nil {
		return false, err
	}

	present, err := efem.ParseStationOccupancy(resp.Payload)
	if err != nil {
		return false, fmt.Errorf("step %d: %w", num, err)
	}

	return present, nil
}

// signalSuccess lights the green tower and homes the equipment. A Home
// failure is logged but does not downgrade the recovery result.
func (r *RecoveryFlow) signalSuccess(ctx context.Context) error {
	r.notifier.OnStepChanged(121, stepDescription(121))
	if err := r.gw.Send(efem.NewCommand("SignalTower", "EFEM", "Green", "On")); err != nil {
		r.logger.Warn("failed to send green signal", "error", err)
	}

	if _, err := r.sendStep(ctx, 122, efem.NewCommand("Home", "EFEM")); err != nil {
		r.logger.Warn("Home after recovery failed", "error", err)
		r.notifier.OnLog("warning: Home after recovery failed")
	}

	return nil
}

// signalFailure lights the flashing red tower. Best effort; the run is
// already failed.
func (r *RecoveryFlow) signalFailure() {
	r.notifier.OnStepChanged(124, stepDescription(124))
	if err := r.gw.Send(efem.NewCommand("SignalTower", "EFEM", "Red", "Flash")); err != nil {
		r.logger.Warn("failed to send red signal", "error", err)
	}
}

// sendStep emits the action and wait steps, sends the command, and requires
// an OK reply.
func (r *RecoveryFlow) sendStep(ctx context.Context, num int, cmd efem.Command, args ...any) (*efem.Response, error) {
	desc := stepDescription(num, args...)
	r.notifier.OnStepChanged(num, desc)
	r.notifier.OnLog(fmt.Sprintf("recovery step %d: %s (%s)", num, desc, cmd.String()))
	r.logger.Debug("recovery step", "step", num, "command", cmd.String())

	if _, ok := stepDescriptions[num+1]; ok {
		r.notifier.OnStepChanged(num+1, stepDescription(num+1))
	}

	resp, err := r.gw.SendAndAwait(ctx, cmd, 0)
	if err != nil {
		return nil, fmt.Errorf("recovery step %d (%s): %w", num, cmd.String(), err)
	}

	switch resp.Kind {
	case efem.RespOK:
		return resp, nil
	case efem.RespError:
		return nil, fmt.Errorf("recovery step %d (%s): %s", num, cmd.String(), r.catalog.Describe(resp.Code))
	case efem.RespTimeout:
		return nil, fmt.Errorf("recovery step %d (%s): no response within deadline", num, cmd.String())
	default:
		return nil, fmt.Errorf("recovery step %d (%s): unexpected response kind %v", num, cmd.String(), resp.Kind)
	}
}
