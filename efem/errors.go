package efem

import "errors"

var (
	// ErrInvalidFrame indicates that a received frame does not follow the
	// "#Name,Device[,Arg]*$" grammar.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrInvalidCommand indicates that a command line could not be parsed.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidSlotMap indicates that a mapping result does not contain
	// exactly one presence field per slot.
	ErrInvalidSlotMap = errors.New("invalid slot map result")

	// ErrInvalidStatus indicates that a GetStatus payload is too short to decode.
	ErrInvalidStatus = errors.New("invalid status payload")
)

var (
	// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
	ErrConnConfigNil = errors.New("connection config is nil")

	// ErrNotConnected indicates that the link is not open.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates that the link is already open or opening.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrSendQueueFull indicates that the sender mailbox did not accept a
	// frame within the send deadline.
	ErrSendQueueFull = errors.New("send queue full")

	// ErrConnClosed indicates that the connection closed while an operation
	// was in progress.
	ErrConnClosed = errors.New("connection closed")

	// ErrRequestPending indicates an attempt to register a second outstanding
	// request. The wire protocol carries no request identifiers, so at most
	// one command may be in flight at any instant.
	ErrRequestPending = errors.New("another request is pending")
)

var (
	// ErrInvalidTransition is returned when an attempt is made to transition
	// the link state to an invalid state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStopRequested indicates that a run was cancelled by its stop signal.
	ErrStopRequested = errors.New("stop requested")

	// ErrRunActive indicates that a runner already has an active run.
	ErrRunActive = errors.New("a run is already active")
)

var (
	// ErrUserRejected indicates that the operator declined a confirmation
	// request, or that the confirmation timed out.
	ErrUserRejected = errors.New("confirmation rejected")

	// ErrConfirmTimeout indicates that no confirmation arrived within the
	// confirmation deadline.
	ErrConfirmTimeout = errors.New("confirmation timeout")

	// ErrNoEmptySlot indicates that the recovery flow needed a free carrier
	// slot and the slot map had none left. This aborts the whole recovery
	// run; there is no partial success.
	ErrNoEmptySlot = errors.New("no empty slot available")
)
