package wifi

import (
	"strconv"
	"strings"
	"time"

	"i4.energy/across/wifigw/at"
)

// decodeStatus extracts the connection status digit from a CIPSTATUS
// reply. Only the first character after the prefix is the status; the
// firmware prints nothing else on that line.
func decodeStatus(payload []byte) (int, error) {
	for _, line := range at.Lines(payload) {
		if !strings.HasPrefix(line, at.PrefixStatus) {
			continue
		}
		rest := line[len(at.PrefixStatus):]
		if rest == "" {
			return 0, &DecodeError{What: "status digit"}
		}
		n, err := strconv.Atoi(rest[:1])
		if err != nil {
			return 0, &DecodeError{What: "status digit"}
		}
		return n, nil
	}
	return 0, &DecodeError{What: "STATUS line"}
}

// decodeAPInfo extracts the access point record from a CWJAP query
// reply.
func decodeAPInfo(payload []byte) ([]at.Field, error) {
	for _, line := range at.Lines(payload) {
		if !strings.HasPrefix(line, at.PrefixAPInfo) {
			continue
		}
		return at.ParseFields(line[len(at.PrefixAPInfo):]), nil
	}
	return nil, &DecodeError{What: "access point line"}
}

// decodeMode extracts the radio mode from a CWMODE query reply.
func decodeMode(payload []byte) (int, error) {
	for _, line := range at.Lines(payload) {
		if !strings.HasPrefix(line, at.PrefixMode) {
			continue
		}
		n, err := strconv.Atoi(line[len(at.PrefixMode):])
		if err != nil {
			return 0, &DecodeError{What: "mode number"}
		}
		return n, nil
	}
	return 0, &DecodeError{What: "mode line"}
}

// decodeLocalIP extracts the station address from a CIFSR reply. The
// address sits between the prefix and a closing quote.
func decodeLocalIP(payload []byte) (string, error) {
	for _, line := range at.Lines(payload) {
		if !strings.HasPrefix(line, at.PrefixStationIP) {
			continue
		}
		if len(line) <= len(at.PrefixStationIP) {
			return "", &DecodeError{What: "station address"}
		}
		return line[len(at.PrefixStationIP) : len(line)-1], nil
	}
	return "", &DecodeError{What: "station address line"}
}

// decodeScan extracts the access point records from a CWLAP reply. A
// reply with no entry lines is a valid empty scan.
func decodeScan(payload []byte) []AccessPoint {
	var aps []AccessPoint
	for _, line := range at.Lines(payload) {
		if !strings.HasPrefix(line, at.PrefixScanEntry) || len(line) <= len(at.PrefixScanEntry) {
			continue
		}
		body := line[len(at.PrefixScanEntry) : len(line)-1]
		aps = append(aps, AccessPoint(at.ParseFields(body)))
	}
	return aps
}

// decodePing extracts the round-trip time from a ping reply. The reading
// arrives on the first line starting with '+', either as +PING:<ms> or
// as a bare +<ms>. A '+' line whose number does not parse (the firmware
// prints +timeout for a lost ping) reports no reading rather than an
// error; a reply with no '+' line at all is undecodable.
func decodePing(payload []byte) (time.Duration, bool, error) {
	for _, line := range at.Lines(payload) {
		if line[0] != '+' {
			continue
		}
		var num string
		if len(line) >= 5 && line[1:5] == "PING" {
			if len(line) > 5 {
				num = line[6:]
			}
		} else {
			num = line[1:]
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return 0, false, nil
		}
		return time.Duration(n) * time.Millisecond, true, nil
	}
	return 0, false, &DecodeError{What: "ping reply line"}
}
