package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-efem/efem"
)

// recipeHandler answers every recipe command the way a healthy tool would,
// with the given slots occupied.
func recipeHandler(occupied ...int) func(cmd efem.Command) *efem.Response {
	return func(cmd efem.Command) *efem.Response {
		switch cmd.Name {
		case "GetStatus":
			return okResp("1", "1", "1", "1", "1", "1", "1", "1", "1", "0", "1")
		case "ReadFoupID":
			return okResp("FOUP42")
		case "GetMapResult":
			return okResp(mapPayload(occupied...)...)
		case "ReadID":
			return okResp("W01")
		default:
			return okResp()
		}
	}
}

func newTestController(gw *fakeGateway) (*FlowController, *flowRecorder) {
	recorder := &flowRecorder{}
	ctrl := NewFlowController(gw, WithFlowNotifier(recorder))
	recorder.submit = ctrl.SubmitConfirmation

	return ctrl, recorder
}

func TestFlowControllerFullRecipe(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler(1, 3)}
	ctrl, recorder := newTestController(gw)

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
	require.Equal(t, StatusCompleted, recorder.finished)

	transfer := func(slot string) []string {
		return []string{
			"SmartGet,Robot1,UpArm,Loadport1," + slot,
			"SmartPut,Robot1,UpArm,Aligner1,1",
			"Alignment,Aligner1",
			"ReadID,OCR1",
			"SmartGet,Robot1,UpArm,Aligner1,1",
			"SmartPut,Robot1,UpArm,Stage1,1",
		}
	}

	expected := []string{
		"GetStatus,Loadport1",
		"ReadFoupID,Loadport1",
		"Load,Loadport1",
		"GetMapResult,Loadport1",
	}
	expected = append(expected, transfer("1")...)
	expected = append(expected, transfer("3")...)
	expected = append(expected, "Unload,Loadport1")

	require.Equal(t, expected, gw.commands())

	// RFID, map result, and one OCR confirmation per wafer
	require.Len(t, recorder.confirms, 4)
	require.Equal(t, "RFID: FOUP42", recorder.confirms[0])
	require.Contains(t, recorder.confirms[1], "Map Result:")
	require.Equal(t, "OCR: W01", recorder.confirms[2])

	// numbered steps are reported in ascending order through the terminal
	require.Equal(t, StatusIdle, recorder.steps[0])
	require.Equal(t, StatusCompleted, recorder.steps[len(recorder.steps)-1])
	require.Contains(t, recorder.steps, 32)
}

func TestFlowControllerEmptyCarrier(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler()}
	ctrl, _ := newTestController(gw)

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)

	// no transfer commands for an empty carrier
	for _, cmd := range gw.commands() {
		require.NotContains(t, cmd, "SmartGet")
		require.NotContains(t, cmd, "SmartPut")
	}
}

func TestFlowControllerDeviceErrorAborts(t *testing.T) {
	gw := &fakeGateway{
		handler: func(cmd efem.Command) *efem.Response {
			if cmd.Name == "ReadFoupID" {
				return errResp("5004")
			}
			return recipeHandler(1)(cmd)
		},
	}
	ctrl, recorder := newTestController(gw)

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)
	require.Equal(t, StatusError, recorder.finished)

	// the abort reason names the catalog description of the device code
	require.True(t, recorder.logContains("RFID read fail (5004)"))

	// nothing moved after the failing step
	require.Equal(t, []string{"GetStatus,Loadport1", "ReadFoupID,Loadport1"}, gw.commands())
}

func TestFlowControllerConfirmationRejected(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler(1)}
	ctrl, recorder := newTestController(gw)
	recorder.confirm = func(kind string) bool { return kind != "RFID" }

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)

	// the carrier is never loaded after a rejected RFID
	require.NotContains(t, gw.commands(), "Load,Loadport1")
}

func TestFlowControllerConfirmationTimeout(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler(1)}
	recorder := &flowRecorder{} // never submits
	ctrl := NewFlowController(gw,
		WithFlowNotifier(recorder),
		WithConfirmTimeout(50*time.Millisecond),
	)

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)
	require.True(t, recorder.logContains("confirmation timeout"))
}

func TestFlowControllerStop(t *testing.T) {
	var ctrl *FlowController
	gw := &fakeGateway{
		handler: func(cmd efem.Command) *efem.Response {
			if cmd.Name == "Load" {
				ctrl.Stop()
			}
			return recipeHandler(1)(cmd)
		},
	}

	recorder := &flowRecorder{}
	ctrl = NewFlowController(gw, WithFlowNotifier(recorder))
	recorder.submit = ctrl.SubmitConfirmation

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusStopped, status)
	require.Equal(t, StatusStopped, recorder.finished)
}

func TestFlowControllerRejectsConcurrentRun(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler(1)}
	recorder := &flowRecorder{} // never submits, so the run parks on the RFID confirmation
	ctrl := NewFlowController(gw, WithFlowNotifier(recorder))

	go func() { _, _ = ctrl.Run(context.Background()) }()
	require.Eventually(t, ctrl.Running, time.Second, time.Millisecond)

	_, err := ctrl.Run(context.Background())
	require.ErrorIs(t, err, efem.ErrRunActive)

	ctrl.Stop()
	require.Eventually(t, func() bool { return !ctrl.Running() }, 2*time.Second, time.Millisecond)

	// a fresh run is possible after the previous one terminated
	recorder.submit = ctrl.SubmitConfirmation
	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
}

func TestFlowControllerDisconnectDuringConfirmation(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler(1), done: make(chan struct{})}
	recorder := &flowRecorder{} // never submits, so the run parks on the RFID confirmation
	ctrl := NewFlowController(gw, WithFlowNotifier(recorder))

	done := make(chan int, 1)
	go func() {
		status, _ := ctrl.Run(context.Background())
		done <- status
	}()

	require.Eventually(t, func() bool {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		return len(recorder.confirms) > 0
	}, time.Second, time.Millisecond)

	// the link goes down while the operator prompt is outstanding; the run
	// must stop well before the 60s confirmation deadline
	close(gw.done)

	select {
	case status := <-done:
		require.Equal(t, StatusStopped, status)
	case <-time.After(2 * time.Second):
		t.Fatal("run not unblocked by disconnect")
	}
	require.Equal(t, StatusStopped, recorder.finished)
}

func TestFlowControllerDeviceNameOptions(t *testing.T) {
	gw := &fakeGateway{handler: recipeHandler(5)}
	recorder := &flowRecorder{}
	ctrl := NewFlowController(gw,
		WithFlowNotifier(recorder),
		WithLoadport("Loadport2"),
		WithRobot("Robot2"),
		WithArm("LowArm"),
		WithAligner("Aligner2"),
		WithOCR("OCR2"),
		WithStage("Stage2"),
	)
	recorder.submit = ctrl.SubmitConfirmation

	status, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)

	commands := gw.commands()
	require.Contains(t, commands, "GetStatus,Loadport2")
	require.Contains(t, commands, "SmartGet,Robot2,LowArm,Loadport2,5")
	require.Contains(t, commands, "SmartPut,Robot2,LowArm,Stage2,1")
	require.Contains(t, commands, "ReadID,OCR2")
}
