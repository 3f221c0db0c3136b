package errcat

// deviceCodes is the error-code table from the EFEM API manual.
var deviceCodes = map[string]string{
	// system
	"0001": "Undefine command",
	"0002": "Undefine device name",
	"0003": "Invalid parameters",
	"0004": "Not in Remote mode",
	"0005": "EFEM not ready",
	"0006": "Internal device communication error",
	"0007": "Configuration read fail",
	"0008": "I/O device initial fail",
	"0009": "Station file read fail",
	"0010": "IO.csv not found",
	"0011": "DeviceInfo file read/write fail",
	"0012": "InfoPad file read fail",
	"0013": "Wrong command size",
	"0014": "HAPI initialization fail",
	"0015": "Extensible Markup Language file reading failed",
	"0016": "ForkInfo file read fail",
	"0017": "UserParameter.db read/write fail",

	// EFEM IO status
	"1001": "Emergency stop on",
	"1002": "FFU pressure difference error",
	"1003": "EFEM CDA error",
	"1004": "EFEM vacuum error",
	"1005": "Ionizer alarm",
	"1006": "Ionizer ion level warning",
	"1007": "Ionizer condition warning",
	"1008": "Light curtain error",
	"1009": "Wrong operation mode",
	"1010": "Door open",
	"1011": "Robot Enable error",
	"1012": "Waiting Stage response timeout",
	"1013": "Robot upper arm CDA error",
	"1014": "Robot upper arm vacuum error",
	"1015": "Robot lower arm CDA error",
	"1016": "Robot lower arm vacuum error",
	"1017": "Ionizer CDA error",
	"1018": "Aligner vacuum error",
	// 1019 removed in manual v1.23
	"1020": "Robot in rotate limit area",
	"1021": "Aligner CDA error",
	"1022": "OCR CDA error",
	"1023": "Barcode CDA error",
	"1024": "Stage wafer state error",
	"1025": "Wafer on Buffer",
	"1026": "Safety Relay Abnormality",
	"1027": "Flipper CDA error",
	"1028": "Stage CDA error",

	// FFU
	"2001": "Unclassified error",
	"2002": "Communication error",
	"2003": "IPM Temperature detection overheating",
	"2004": "IPM Module anomaly protection",
	"2005": "Fan startup error",
	"2006": "The set value is not reached within one minute of the speed",
	"2007": "Communication disconnect",

	// robot
	"3001": "Robot communication error",
	"3002": "Unclassified error",
	"3003": "The teach-pendant is using",
	"3004": "Robot end effector setting error",
	"3005": "Wafer size between robot and LP not match",
	"3006": "Wafer type between robot and LP not match",
	"3007": "Flipper station not has wafer",
	"3008": "Flipper station has wafer",
	"3009": "Flipper position not safety",
	"3010": "Cassette type between robot and LP not match",
	"3011": "Offset of Z is too big",
	"3101": "Command error of macro command",
	"3102": "Command error of station name",
	"3103": "Command error of axis name",
	"3104": "Command error of group name",
	"3105": "Command error of argument",
	"3106": "Command no response",
	"3107": "Command processing",
	"3108": "Device processing",
	"3199": "Robot internal error",
	"3201": "Vacuum state is activated prior to pick wafer",
	"3202": "Vacuum state can not be produced or released after pick/place",
	"3203": "Upper limit switch on the Z-axis hardware actuated",
	"3204": "Lower limit switch on the Z-axis hardware actuated",
	"3205": "Optical fiber sensor activated before pick or after place",
	"3206": "Optical fiber sensor deactivated after pick or before place",
	"3207": "Reed switch under extended state cannot be retracted",
	"3208": "Reed switch under retracted state cannot be extended",
	"3209": "Positive limit switch of H-axis activated",
	"3210": "Negative limit switch of H-axis activated",
	"3211": "Robotic arm flip cylinder not flipped to the front side",
	"3212": "Robotic arm flip cylinder not flipped to the back side",
	"3213": "Wafer fell from R axis during picking/placing",
	"3214": "Wafer fell from W axis during picking/placing",
	"3215": "Positive pressure state is actuated prior to picking wafer",
	"3216": "Positive pressure state can not be produced prior to place",
	"3219": "Electric flip origin search not completed",
	"3220": "Electric flip limit has been activated",
	"3221": "Electric flip move failed",
	"3222": "Position of electric flip abnormal due to external force",
	"3223": "Upper arm vacuum status error",
	"3224": "Lower arm vacuum status error",
	"3301": "Motor has not been enabled",
	"3302": "Origin search not completed",
	"3303": "Moving",
	"3304": "Following position error is too big",
	"3305": "Servo motor encoder error",
	"3306": "Servo motor encoder failed",
	"3307": "Temperature of servo motor too high",
	"3308": "Motor moves to the positive limit position",
	"3309": "Motor moves to the negative limit position",
	"3310": "Speed or acceleration/deceleration parameter abnormal",
	"3311": "When T/Z/H origin search, R/W not finished origin search",
	"3312": "When T/Z/H origin search, R/W not returned to safety position",
	"3313": "Temperature of controller too high",
	"3314": "Origin position is abnormal",
	"3401": "Robot Emergency stop on",
	"3402": "Controller power failed",
	"3403": "Voltage of controller too low",
	"3404": "Voltage of controller too high",
	"3405": "Controller detect driver failed",
	"3406": "Controller voltage abnormal",
	"3407": "Controller unable to identify driver",
	"3408": "UPS failed",
	"3409": "External stop signal triggered",
	"3999": "Error code of A series robots",

	// aligner
	"4001": "Aligner communication error",
	"4002": "Aligner internal command execute fail",
	"4003": "Unclassified error",
	"4004": "Alignment fail",
	"4005": "Initialization fail",
	"4006": "Aligner not in home position",
	"4007": "Wafer on aligner",
	"4008": "No wafer on aligner",
	"4009": "Wrong wafer status",
	"4101": "Aligner no response",
	"4102": "Command processing",
	"4103": "Wrong wafer size",
	"4201": "Vacuum not sensed on chuck",
	"4202": "Invalid CCD sensor data",
	"4203": "Chuck Vacuum Switch ON",
	"4204": "Pins Vacuum Switch ON",
	"4205": "Data capture error",
	"4206": "Wafer lost during prealign operation",
	"4207": "Flat or Notch not found",
	"4208": "Calculated offset out of limits",
	"4301": "Moving",
	"4302": "Measurement speed not reached on time",
	"4303": "Unable to execute motion commands",
	"4304": "Motion error",
	"4305": "Servo OFF on one or more axes",
	"4401": "Emergency stop on",
	"4402": "Alignment algorithm interrupted by host",
	"4504": "Aligner Gripper not on release position",
	"4505": "Aligner Gripper not on grip position",
	"4508": "Aligner moves to the limit position",

	// load port / RFID
	"5001": "Loadport communication error",
	"5002": "RFID communication error",
	"5003": "Unclassified error",
	"5004": "RFID read fail",
	"5005": "Initialization fail",
	"5006": "Loadport status error",
	"5007": "Foup not load",
	"5008": "Foup slot status error",
	"5009": "Loadport does not support specified lamp control",
	"5101": "Loadport command no response",
	"5102": "RFID command no response",
	"5103": "Command Processing",
	"5104": "Under manual operation",
	"5201": "Wafer mapping not completed",
	"5202": "Detect hand-caught/head-caught sensor",
	"5203": "Detect wafer out sensor",
	"5204": "Carrier improperly taken",
	"5205": "Carrier improperly placed",
	"5206": "FOUP open/close disable",
	"5207": "Dock axis disable",
	"5208": "FOUP map disable",
	"5209": "FOUP clamp disable",
	"5210": "FOUP Unclamp disable",
	"5211": "FOUP latch disable",
	"5212": "FOUP Unlatch disable",
	"5213": "Vacuum disable",
	"5301": "Moving",
	"5302": "Incorrect FOUP placement status",
	"5303": "Incorrect clamp axis position",
	"5304": "Incorrect Docking axis position",
	"5305": "Incorrect vacuum status",
	"5306": "Incorrect latch position",
	"5307": "Incorrect door open/close position",
	"5308": "Incorrect door up/down position",
	"5309": "Incorrect mapper position",
	"5310": "Incorrect Z-axis position",
	"5401": "Emergency stop on",

	// OCR
	"6001": "Unclassified error",
	"6002": "OCR communication error",
	"6003": "OCR Read failed",
	"6004": "OCR no response",
	"6005": "OCR position move failed",
	"6006": "OCR FTP Server not found",

	// barcode
	"7001": "Unclassified error",
	"7002": "Barcode communication error",
	"7003": "Barcode Read failed",
	"7004": "Barcode no response",
	"7005": "Barcode position move failed",

	// E84
	"8001": "Unclassified error",
	"8002": "E84 communication error",
	"8003": "E84 no response",
	"8004": "Environment status not ready, can't switch to AUTO MODE",
	"8005": "Not in Manual Mode or Standby Mode",
	"8006": "GO or CS_0 not OFF status, can't switch to Manual Mode",
	"8007": "DI hardware input ES OFF, not accept set ES ON command",
	"8008": "Controller not in ERROR status or MANUAL MODE. command Fail",
	"8009": "Environment status not ready, command Fail",
	"8010": "Input timeout value out of range 1~255 seconds",
	"8011": "Command processing",
}
