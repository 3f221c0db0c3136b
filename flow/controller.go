package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/errcat"
	"github.com/arloliu/go-efem/logger"
)

// FlowController executes the fixed wafer-transfer recipe as a numbered
// state machine: RFID read and confirmation, carrier load and mapping,
// a per-slot transfer loop through aligner and OCR to the stage, and the
// final unload. Any non-OK result aborts the whole run.
type FlowController struct {
	gw        Gateway
	logger    logger.Logger
	notifier  efem.Notifier
	catalog   *errcat.Catalog
	confirmer Confirmer

	confirmTimeout time.Duration

	loadport string
	robot    string
	arm      string
	aligner  string
	ocr      string
	stage    string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// FlowOption configures a FlowController or RecoveryFlow.
type FlowOption func(*FlowController)

// WithFlowLogger sets the controller's logger.
func WithFlowLogger(l logger.Logger) FlowOption {
	return func(f *FlowController) { f.logger = l }
}

// WithFlowNotifier attaches the collaborator receiving step changes,
// confirmation requests and the final run status.
func WithFlowNotifier(n efem.Notifier) FlowOption {
	return func(f *FlowController) { f.notifier = n }
}

// WithFlowCatalog sets the error catalog used to describe device errors.
func WithFlowCatalog(cat *errcat.Catalog) FlowOption {
	return func(f *FlowController) { f.catalog = cat }
}

// WithConfirmTimeout sets the operator confirmation deadline.
func WithConfirmTimeout(d time.Duration) FlowOption {
	return func(f *FlowController) { f.confirmTimeout = d }
}

// WithLoadport sets the load-port device name.
func WithLoadport(name string) FlowOption {
	return func(f *FlowController) { f.loadport = name }
}

// WithRobot sets the robot device name.
func WithRobot(name string) FlowOption {
	return func(f *FlowController) { f.robot = name }
}

// WithArm sets the robot arm used for transfers.
func WithArm(name string) FlowOption {
	return func(f *FlowController) { f.arm = name }
}

// WithAligner sets the aligner device name.
func WithAligner(name string) FlowOption {
	return func(f *FlowController) { f.aligner = name }
}

// WithOCR sets the OCR device name.
func WithOCR(name string) FlowOption {
	return func(f *FlowController) { f.ocr = name }
}

// WithStage sets the destination stage device name.
func WithStage(name string) FlowOption {
	return func(f *FlowController) { f.stage = name }
}

// NewFlowController creates a controller driving the given gateway with the
// default device names (Loadport1, Robot1, UpArm, Aligner1, OCR1, Stage1).
func NewFlowController(gw Gateway, opts ...FlowOption) *FlowController {
	f := &FlowController{
		gw:             gw,
		logger:         logger.GetLogger(),
		notifier:       efem.NopNotifier{},
		catalog:        errcat.Default(),
		confirmTimeout: 60 * time.Second,
		loadport:       "Loadport1",
		robot:          "Robot1",
		arm:            "UpArm",
		aligner:        "Aligner1",
		ocr:            "OCR1",
		stage:          "Stage1",
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Run executes the recipe and blocks until a terminal state. The returned
// status is StatusCompleted, StatusError or StatusStopped and is also
// reported through OnRunFinished. It fails with efem.ErrRunActive when a
// run is already active.
func (f *FlowController) Run(ctx context.Context) (int, error) {
	if !f.running.CompareAndSwap(false, true) {
		return StatusIdle, efem.ErrRunActive
	}
	defer f.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	watchLink(runCtx, cancel, f.gw)

	f.notifier.OnStepChanged(StatusIdle, stepDescription(StatusIdle))

	status := StatusCompleted
	if err := f.runRecipe(runCtx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, efem.ErrStopRequested) {
			status = StatusStopped
			f.notifier.OnLog("flow stopped")
		} else {
			status = StatusError
			f.logger.Error("flow aborted", "error", err)
			f.notifier.OnLog("flow aborted: " + err.Error())
		}
	}

	f.notifier.OnStepChanged(status, stepDescription(status))
	f.notifier.OnRunFinished(status)

	return status, nil
}

// Stop requests a cooperative stop of the active run.
func (f *FlowController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
}

// SubmitConfirmation resolves the outstanding confirmation request.
func (f *FlowController) SubmitConfirmation(ok bool) {
	f.confirmer.Submit(ok)
}

// Running reports whether a run is active.
func (f *FlowController) Running() bool {
	return f.running.Load()
}

func (f *FlowController) runRecipe(ctx context.Context) error {
	// step 2: load-port status must be OK before anything moves
	if _, err := f.sendStep(ctx, 2, efem.NewCommand("GetStatus", f.loadport)); err != nil {
		return err
	}

	// steps 5..8: carrier RFID read and confirmation
	resp, err := f.sendStep(ctx, 5, efem.NewCommand("ReadFoupID", f.loadport))
	if err != nil {
		return err
	}

	rfid := firstField(resp.Payload)
	if err := f.confirmStep(ctx, 7, "RFID", rfid); err != nil {
		return err
	}

	// step 9: open and load the carrier; mapping happens as part of it
	if _, err := f.sendStep(ctx, 9, efem.NewCommand("Load", f.loadport)); err != nil {
		return err
	}

	// steps 11..14: slot map retrieval and confirmation
	resp, err = f.sendStep(ctx, 11, efem.NewCommand("GetMapResult", f.loadport))
	if err != nil {
		return err
	}

	slotMap, err := efem.ParseSlotMap(resp.Payload)
	if err != nil {
		return fmt.Errorf("step 11: %w", err)
	}

	if err := f.confirmStep(ctx, 13, "Map Result", slotMap.Summary()); err != nil {
		return err
	}

	// per-slot transfer loop, skipping empty slots
	for slot := 1; slot <= efem.SlotCount; slot++ {
		if !slotMap.Occupied(slot) {
			f.notifier.OnLog(fmt.Sprintf("slot %d empty, skipped", slot))
			continue
		}

		if err := f.transferSlot(ctx, slot); err != nil {
			return err
		}
	}

	f.notifier.OnStepChanged(32, stepDescription(32))

	// step 33: close and unload the carrier
	if _, err := f.sendStep(ctx, 33, efem.NewCommand("Unload", f.loadport)); err != nil {
		return err
	}

	return nil
}

// transferSlot moves one wafer: load port -> aligner -> alignment -> OCR
// read + confirmation -> stage.
func (f *FlowController) transferSlot(ctx context.Context, slot int) error {
	f.notifier.OnLog(fmt.Sprintf("transferring wafer from slot %d", slot))

	slotArg := strconv.Itoa(slot)

	if _, err := f.sendStep(ctx, 15,
		efem.NewCommand("SmartGet", f.robot, f.arm, f.loadport, slotArg), slot); err != nil {
		return err
	}

	if _, err := f.sendStep(ctx, 17,
		efem.NewCommand("SmartPut", f.robot, f.arm, f.aligner, "1")); err != nil {
		return err
	}

	if _, err := f.sendStep(ctx, 19, efem.NewCommand("Alignment", f.aligner)); err != nil {
		return err
	}

	resp, err := f.sendStep(ctx, 21, efem.NewCommand("ReadID", f.ocr))
	if err != nil {
		return err
	}

	if err := f.confirmStep(ctx, 23, "OCR", firstField(resp.Payload)); err != nil {
		return err
	}

	if _, err := f.sendStep(ctx, 25,
		efem.NewCommand("SmartGet", f.robot, f.arm, f.aligner, "1")); err != nil {
		return err
	}

	if _, err := f.sendStep(ctx, 27,
		efem.NewCommand("SmartPut", f.robot, f.arm, f.stage, "1")); err != nil {
		return err
	}

	f.notifier.OnLog(fmt.Sprintf("slot %d transferred", slot))

	return nil
}

// sendStep emits the action step and its wait step, sends the command, and
// requires an OK reply. Device errors carry the catalog description.
func (f *FlowController) sendStep(ctx context.Context, num int, cmd efem.Command, args ...any) (*efem.Response, error) {
	desc := stepDescription(num, args...)
	f.notifier.OnStepChanged(num, desc)
	f.notifier.OnLog(fmt.Sprintf("step %d: %s (%s)", num, desc, cmd.String()))
	f.logger.Debug("flow step", "step", num, "command", cmd.String())

	f.notifier.OnStepChanged(num+1, stepDescription(num+1))

	resp, err := f.gw.SendAndAwait(ctx, cmd, 0)
	if err != nil {
		return nil, fmt.Errorf("step %d (%s): %w", num, cmd.String(), err)
	}

	switch resp.Kind {
	case efem.RespOK:
		return resp, nil
	case efem.RespError:
		return nil, fmt.Errorf("step %d (%s): %s", num, cmd.String(), f.catalog.Describe(resp.Code))
	case efem.RespTimeout:
		return nil, fmt.Errorf("step %d (%s): no response within deadline", num, cmd.String())
	default:
		return nil, fmt.Errorf("step %d (%s): unexpected response kind %v", num, cmd.String(), resp.Kind)
	}
}

// confirmStep emits the request and wait steps and blocks on the operator.
func (f *FlowController) confirmStep(ctx context.Context, num int, kind, data string) error {
	desc := stepDescription(num)
	f.notifier.OnStepChanged(num, desc)
	f.notifier.OnLog(fmt.Sprintf("step %d: %s (%s: %s)", num, desc, kind, data))
	f.notifier.OnStepChanged(num+1, stepDescription(num+1))

	if err := f.confirmer.Request(ctx, f.notifier, kind, data, f.confirmTimeout); err != nil {
		return fmt.Errorf("step %d (%s): %w", num, kind, err)
	}

	f.notifier.OnLog(fmt.Sprintf("step %d: %s confirmed", num+1, kind))

	return nil
}

// firstField returns the first payload field of an OK response, or a marker
// when the device sent no data.
func firstField(payload []string) string {
	if len(payload) == 0 {
		return "<no data>"
	}

	return strings.TrimSpace(payload[0])
}
