package at

import (
	"strconv"
	"strings"
)

const (
	// Terminal Control
	CRLF = "\r\n"

	// Reply Terminators
	EndOK         = "OK\r\n"
	EndError      = "ERROR\r\n"
	WifiConnected = "WIFI CONNECTED\r\n"
	WifiGotIP     = "WIFI GOT IP\r\n"
	ErrCode       = "ERR CODE:"

	// Commands
	CmdReset     = "AT+RST"
	CmdStatus    = "AT+CIPSTATUS"
	CmdQueryAP   = "AT+CWJAP?"
	CmdQueryMode = "AT+CWMODE?"
	CmdLocalIP   = "AT+CIFSR"
	CmdScan      = "AT+CWLAP"

	// Reply Prefixes
	PrefixStatus    = "STATUS:"
	PrefixAPInfo    = "+CWJAP:"
	PrefixMode      = "+CWMODE:"
	PrefixStationIP = `+CIFSR:STAIP,"`
	PrefixScanEntry = "+CWLAP:("
)

// Command stems used for classification. Join commands carry the equals
// sign so the AP query (AT+CWJAP?) is never mistaken for a join.
const (
	stemJoin = "AT+CWJAP="
	stemPing = "AT+PING"
)

// JoinAP builds the command that associates the module with an access point.
func JoinAP(ssid, password string) string {
	return stemJoin + `"` + ssid + `","` + password + `"`
}

// SetMode builds the command that switches the radio operating mode.
func SetMode(mode int) string {
	return "AT+CWMODE=" + strconv.Itoa(mode)
}

// Ping builds the ping command. Quote characters in the host are dropped
// so a quoted hostname cannot break the command framing.
func Ping(host string) string {
	return stemPing + `="` + strings.ReplaceAll(host, `"`, "") + `"`
}

// IsJoin reports whether cmd is a join command. Join replies terminate on
// the GOT IP marker instead of a trailing result line.
func IsJoin(cmd string) bool {
	return strings.Contains(cmd, stemJoin)
}

// IsPing reports whether cmd is a ping command. A ping ERROR reply is a
// valid result the caller interprets, not a protocol failure.
func IsPing(cmd string) bool {
	return strings.Contains(cmd, stemPing)
}
