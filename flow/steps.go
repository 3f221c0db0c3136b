package flow

import "fmt"

// Terminal status codes reported through Notifier.OnRunFinished. Normal runs
// end in Completed, Error or Stopped; recovery runs use the 1xx range.
const (
	StatusIdle      = 0
	StatusCompleted = 99
	StatusError     = -1
	StatusStopped   = -2

	StatusRecoveryStart     = 101
	StatusRecoveryCompleted = 199
	StatusRecoveryError     = -101
	StatusRecoveryStopped   = -102
)

// stepDescriptions maps a step number to its description template. Step
// numbers follow the equipment handshake document: odd numbers 1..38 are
// the normal recipe (each action step is followed by its wait step), the
// 1xx range is the recovery procedure, and the terminal codes double as
// step numbers for the final OnStepChanged notification.
var stepDescriptions = map[int]string{
	1:  "host: prepare delivery",
	2:  "query load-port status (GetStatus)",
	3:  "load-port status reply",
	4:  "host: delivery ready",
	5:  "read carrier RFID (ReadFoupID)",
	6:  "carrier RFID reply",
	7:  "host: confirm RFID data",
	8:  "host: RFID data confirmed",
	9:  "open and load carrier (Load)",
	10: "carrier load reply",
	11: "retrieve slot map (GetMapResult)",
	12: "slot map reply",
	13: "host: confirm slot map",
	14: "host: slot map confirmed",
	15: "pick wafer from load port slot %d (SmartGet)",
	16: "wafer pick reply",
	17: "place wafer at aligner (SmartPut)",
	18: "aligner place reply",
	19: "run alignment (Alignment)",
	20: "alignment reply",
	21: "read wafer OCR (ReadID)",
	22: "wafer OCR reply",
	23: "host: confirm OCR data",
	24: "host: OCR data confirmed",
	25: "pick wafer from aligner (SmartGet)",
	26: "aligner pick reply",
	27: "place wafer at stage (SmartPut)",
	28: "stage place reply",
	29: "pick wafer back from stage (SmartGet)",
	30: "stage pick reply",
	31: "place wafer at buffer (SmartPut)",
	32: "buffer place reply / check transfer loop",
	33: "close and unload carrier (Unload)",
	34: "carrier unload reply",
	35: "host: prepare pickup",
	36: "query status for pickup (GetStatus)",
	37: "pickup status reply",
	38: "host: pickup done",

	StatusIdle:      "flow idle",
	StatusCompleted: "flow completed",
	StatusError:     "flow aborted on error",
	StatusStopped:   "flow stopped by operator",

	101: "recovery started",
	102: "check Remote mode",
	103: "query load-port slot map (GetMapResult)",
	104: "slot map reply",
	105: "compute empty load-port slots",
	106: "query robot arm occupancy (CheckWaferPresence)",
	107: "robot occupancy reply",
	108: "evaluate robot arm occupancy",
	109: "place robot wafer into empty slot %d (SmartPut)",
	110: "robot place reply",
	111: "query aligner occupancy (CheckWaferPresence)",
	112: "aligner occupancy reply",
	113: "evaluate aligner occupancy",
	114: "pick wafer from aligner (SmartGet)",
	115: "aligner pick reply",
	116: "place aligner wafer into empty slot %d (SmartPut)",
	117: "aligner wafer place reply",
	118: "re-check equipment occupancy (CheckWaferPresence)",
	119: "occupancy re-check reply",
	120: "evaluate recovery result",
	121: "recovery succeeded, signal tower green",
	122: "recovery succeeded, run EFEM Home",
	123: "EFEM Home reply",
	124: "recovery failed, signal tower red flashing",

	StatusRecoveryCompleted: "recovery completed",
	StatusRecoveryError:     "recovery aborted on error",
	StatusRecoveryStopped:   "recovery stopped by operator",
}

// stepDescription renders the description for a step number, formatting the
// template with args when given.
func stepDescription(num int, args ...any) string {
	tmpl, ok := stepDescriptions[num]
	if !ok {
		return fmt.Sprintf("unknown step %d", num)
	}
	if len(args) == 0 {
		return tmpl
	}

	return fmt.Sprintf(tmpl, args...)
}
