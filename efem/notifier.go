package efem

// Notifier is the collaborator interface through which the engine reports to
// the surrounding layer (a GUI, a terminal front-end, or a test harness).
//
// All callbacks are invoked from engine goroutines in arrival order. A
// Notifier implementation must not block for long periods; a slow consumer
// stalls the event mailbox, not the receive path.
//
// OnConfirmationRequested announces that a run is suspended until the caller
// eventually submits a confirmation (see flow.Confirmer.Submit); the engine
// enforces its own confirmation deadline independently.
type Notifier interface {
	// OnLog delivers a human-readable log line.
	OnLog(text string)

	// OnStatusChanged reports a link state change (connected, connecting,
	// disconnected, error).
	OnStatusChanged(state LinkState)

	// OnEvent delivers an unsolicited event frame.
	OnEvent(ev *Event)

	// OnStepChanged reports that a flow or sequence reached the given
	// numbered step.
	OnStepChanged(step int, description string)

	// OnConfirmationRequested asks the operator to verify data read from the
	// equipment (an RFID value, a mapping summary, an OCR result).
	OnConfirmationRequested(kind string, data string)

	// OnRunFinished reports the terminal status code of a run.
	OnRunFinished(status int)
}

// NopNotifier is a Notifier that discards every notification. It is the
// default when no collaborator is attached.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) OnLog(string)                          {}
func (NopNotifier) OnStatusChanged(LinkState)             {}
func (NopNotifier) OnEvent(*Event)                        {}
func (NopNotifier) OnStepChanged(int, string)             {}
func (NopNotifier) OnConfirmationRequested(string, string) {}
func (NopNotifier) OnRunFinished(int)                     {}
