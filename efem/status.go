package efem

// StatusReport decodes the payload of a "GetStatus,EFEM" success response.
//
// The payload is a list of single-digit flags. Field positions follow the
// device manual: field 0 is the emergency-stop circuit (0 = triggered),
// field 1 the FFU pressure differential (0 = alarm), field 7 the operation
// mode (0 = Local, 1 = Remote), field 8 the robot enable state and the last
// field the door (0 = open, 1 = closed). Some firmware revisions append
// extra fields before the door flag; the decoder therefore reads the door
// from the end of the payload rather than a fixed index.
type StatusReport struct {
	EmergencyStop bool // true when the EMO circuit is triggered
	FFUAlarm      bool // true when the FFU pressure differential is abnormal
	Remote        bool // true in Remote mode, false in Local mode
	RobotEnabled  bool
	DoorClosed    bool
	Fields        []string // raw payload for fields not decoded above
}

// statusMinFields is the minimum payload length of a GetStatus,EFEM reply.
const statusMinFields = 10

// ParseStatusReport decodes the payload fields (everything after the OK
// token) of a GetStatus,EFEM response.
func ParseStatusReport(payload []string) (*StatusReport, error) {
	if len(payload) < statusMinFields {
		return nil, ErrInvalidStatus
	}

	return &StatusReport{
		EmergencyStop: payload[0] == "0",
		FFUAlarm:      payload[1] == "0",
		Remote:        payload[7] != "0",
		RobotEnabled:  payload[8] != "0",
		DoorClosed:    payload[len(payload)-1] != "0",
		Fields:        append([]string(nil), payload...),
	}, nil
}

// Presence is the wafer-presence token used by CheckWaferPresence replies.
const Presence = "Presence"

// ArmOccupancy decodes the payload of a "CheckWaferPresence,RobotN" success
// response: field 0 is the lower arm, field 1 the upper arm.
type ArmOccupancy struct {
	Lower bool
	Upper bool
}

// ParseArmOccupancy decodes a robot CheckWaferPresence payload.
func ParseArmOccupancy(payload []string) (*ArmOccupancy, error) {
	if len(payload) < 2 {
		return nil, ErrInvalidStatus
	}

	return &ArmOccupancy{
		Lower: payload[0] == Presence,
		Upper: payload[1] == Presence,
	}, nil
}

// Any reports whether either arm holds a wafer.
func (o *ArmOccupancy) Any() bool { return o.Lower || o.Upper }

// ParseStationOccupancy decodes a single-station CheckWaferPresence payload
// (aligner, stage, buffer): field 0 is the presence token.
func ParseStationOccupancy(payload []string) (bool, error) {
	if len(payload) < 1 {
		return false, ErrInvalidStatus
	}

	return payload[0] == Presence, nil
}
