package sik

// Escape sequences are written without a line terminator.
const (
	escapeProbe = "+"
	escapeEnter = "+++"
)

// Commands, without the "AT" prefix.
const (
	cmdNop        = ""
	cmdExit       = "O"
	cmdBanner     = "I0"
	cmdVersion    = "I1"
	cmdBoardID    = "I2"
	cmdBoardFreq  = "I3"
	cmdBootloader = "I4"
	cmdDumpParams = "I5"
	cmdCommit     = "&W"
	cmdReboot     = "Z"
	cmdRssiDebug  = "&T=RSSI"
)

const replyOK = "OK"

// eepromLines is the number of parameter lines ATI5 prints after its echo.
const eepromLines = 16
