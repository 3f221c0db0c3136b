package efem

import (
	"strings"
)

// Frame markers of the EFEM wire protocol. Every frame starts with
// FramePrefix (or FrameAltPrefix for teach-pendant addressing) and ends
// with FrameTerminator. Frames are UTF-8 text and contain no newlines.
const (
	FramePrefix     = "#"
	FrameAltPrefix  = "#@"
	FrameTerminator = "$"
)

// EventName is the reserved command-name field that marks a frame as an
// unsolicited event. An incoming frame whose first field equals EventName
// is always an event, regardless of any outstanding request.
const EventName = "Event"

// Tokens the device uses to tag a response as success or failure.
const (
	okToken  = "OK"
	errToken = "Error"
)

// Command represents one logical command to the equipment: a command name,
// a target device, and ordered arguments. Alt selects the #@ (teach-pendant)
// addressing variant on the wire. A Command is immutable once sent.
type Command struct {
	Name   string
	Device string
	Args   []string
	Alt    bool
}

// NewCommand creates a Command for the given name, device and arguments.
func NewCommand(name, device string, args ...string) Command {
	return Command{Name: name, Device: device, Args: args}
}

// Format renders the command as a wire frame, e.g. "#Load,Loadport1$" or
// "#@Home,Robot$" when Alt is set.
func (c Command) Format() string {
	var sb strings.Builder
	if c.Alt {
		sb.WriteString(FrameAltPrefix)
	} else {
		sb.WriteString(FramePrefix)
	}

	sb.WriteString(c.Name)
	if c.Device != "" {
		sb.WriteByte(',')
		sb.WriteString(c.Device)
	}
	for _, arg := range c.Args {
		sb.WriteByte(',')
		sb.WriteString(arg)
	}
	sb.WriteString(FrameTerminator)

	return sb.String()
}

// String returns the logical command text without frame markers,
// e.g. "Load,Loadport1".
func (c Command) String() string {
	frame := c.Format()
	frame = strings.TrimPrefix(frame, FrameAltPrefix)
	frame = strings.TrimPrefix(frame, FramePrefix)

	return strings.TrimSuffix(frame, FrameTerminator)
}

// ParseCommandLine parses a logical command line such as "Load,Loadport1" or
// "SmartGet,Robot1,UpArm,Loadport1,3". A leading '@' selects the alternate
// (#@) addressing variant, matching the script notation.
func ParseCommandLine(line string) (Command, error) {
	line = strings.TrimSpace(line)

	var alt bool
	if strings.HasPrefix(line, "@") {
		alt = true
		line = line[1:]
	}

	if line == "" {
		return Command{}, ErrInvalidCommand
	}

	parts := strings.Split(line, ",")
	cmd := Command{Name: strings.TrimSpace(parts[0]), Alt: alt}
	if cmd.Name == "" {
		return Command{}, ErrInvalidCommand
	}

	if len(parts) > 1 {
		cmd.Device = strings.TrimSpace(parts[1])
	}
	for _, arg := range parts[2:] {
		cmd.Args = append(cmd.Args, strings.TrimSpace(arg))
	}

	return cmd, nil
}

// Message is one parsed incoming frame. Name is the first field, Device the
// second; Details holds the remaining fields in wire order. Raw preserves the
// frame as received, including the terminator, for logging.
type Message struct {
	Name    string
	Device  string
	Details []string
	Raw     string
}

// ParseMessage parses a single received frame. The frame must end with the
// '$' terminator; a leading '#' or '#@' is stripped if present (the device
// echoes the prefix on some firmware revisions but not on others).
func ParseMessage(frame string) (*Message, error) {
	raw := frame

	if !strings.HasSuffix(frame, FrameTerminator) {
		return nil, ErrInvalidFrame
	}
	frame = strings.TrimSuffix(frame, FrameTerminator)
	frame = strings.TrimPrefix(frame, FrameAltPrefix)
	frame = strings.TrimPrefix(frame, FramePrefix)

	if strings.TrimSpace(frame) == "" {
		return nil, ErrInvalidFrame
	}

	parts := strings.Split(frame, ",")
	msg := &Message{Name: parts[0], Raw: raw}
	if len(parts) > 1 {
		msg.Device = parts[1]
	}
	if len(parts) > 2 {
		msg.Details = parts[2:]
	}

	return msg, nil
}

// IsEvent reports whether the message is an unsolicited event frame.
func (m *Message) IsEvent() bool {
	return m.Name == EventName
}

// Event converts an event frame into an Event. It returns nil if the
// message is not an event frame.
func (m *Message) Event() *Event {
	if !m.IsEvent() {
		return nil
	}

	ev := &Event{Source: m.Device, Raw: m.Raw}
	if len(m.Details) > 0 {
		ev.Type = m.Details[0]
	}
	if len(m.Details) > 1 {
		ev.Data = m.Details[1:]
	}

	return ev
}

// Event is an unsolicited notification from the equipment (door state, FOUP
// placement, arm occupancy). Events are never correlated to a request; they
// are forwarded to the Notifier only.
type Event struct {
	Source string
	Type   string
	Data   []string
	Raw    string
}

// String returns the event in logical form, e.g. "Event,Loadport1,FoupPlace".
func (e *Event) String() string {
	parts := append([]string{EventName, e.Source, e.Type}, e.Data...)
	return strings.Join(parts, ",")
}

// RespKind tags a Response as success, device error, or timeout.
type RespKind int

const (
	// RespOK indicates the device acknowledged the command; Payload holds
	// the data fields.
	RespOK RespKind = iota
	// RespError indicates the device returned an explicit error code.
	RespError
	// RespTimeout indicates no matching response arrived within the deadline.
	RespTimeout
)

func (k RespKind) String() string {
	switch k {
	case RespOK:
		return "OK"
	case RespError:
		return "Error"
	case RespTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Response is the outcome of one sent command.
type Response struct {
	Kind    RespKind
	Payload []string // data fields of an OK response
	Code    string   // device error code of an Error response
	Raw     string   // original frame, empty for timeouts
}

// OK reports whether the response is a success response.
func (r *Response) OK() bool { return r.Kind == RespOK }

// ResponseFromMessage inspects a name-matched message and builds the Response
// it carries. Presence of the literal "Error" token among the details yields
// a device error whose code is the last detail; presence of "OK" yields a
// success response whose payload is the remaining details. A message with
// neither token carries no response at all and returns (nil, false): the
// caller logs it and keeps waiting.
func ResponseFromMessage(msg *Message) (*Response, bool) {
	for _, d := range msg.Details {
		if d == errToken {
			code := ""
			if n := len(msg.Details); n > 0 {
				code = msg.Details[n-1]
			}

			return &Response{Kind: RespError, Code: code, Raw: msg.Raw}, true
		}
	}

	for i, d := range msg.Details {
		if d == okToken {
			payload := make([]string, 0, len(msg.Details)-1)
			payload = append(payload, msg.Details[:i]...)
			payload = append(payload, msg.Details[i+1:]...)

			return &Response{Kind: RespOK, Payload: payload, Raw: msg.Raw}, true
		}
	}

	return nil, false
}
