package at

import "bytes"

// Terminator identifies the byte sequence that completed a reply frame.
type Terminator int

const (
	TermNone          Terminator = iota // no terminator seen yet
	TermOK                              // trailing OK line
	TermError                           // trailing ERROR line
	TermWifiConnected                   // association marker, non-join commands only
	TermWifiGotIP                       // address marker, join commands only
	TermErrCode                         // firmware error code line
)

// Terminated reports whether buf holds a complete reply frame and which
// terminator completed it. It is meant to run after every appended byte,
// which is why the trailing OK/ERROR checks are plain suffix tests: a
// marker that appeared earlier would already have completed the frame on
// the byte that finished it.
//
// The marker checks are asymmetric. A join command is complete only once
// the module reports an address (GOT IP), while for every other command
// the bare association marker is terminal.
func Terminated(buf []byte, join bool) (Terminator, bool) {
	switch {
	case bytes.HasSuffix(buf, []byte(EndOK)):
		return TermOK, true
	case bytes.HasSuffix(buf, []byte(EndError)):
		return TermError, true
	case join && bytes.Contains(buf, []byte(WifiGotIP)):
		return TermWifiGotIP, true
	case !join && bytes.Contains(buf, []byte(WifiConnected)):
		return TermWifiConnected, true
	case bytes.Contains(buf, []byte(ErrCode)):
		return TermErrCode, true
	}
	return TermNone, false
}
