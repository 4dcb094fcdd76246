package wifi

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"i4.energy/across/wifigw/at"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		status  int
		wantErr bool
	}{
		{name: "Got IP", payload: "STATUS:2\r\n\r\n", status: 2},
		{name: "No AP", payload: "STATUS:5\r\n\r\n", status: 5},
		{name: "Noise before the line", payload: "busy p...\r\nSTATUS:3\r\n", status: 3},
		{name: "Missing line", payload: "\r\n", wantErr: true},
		{name: "Digit missing", payload: "STATUS:\r\n", wantErr: true},
		{name: "Digit not numeric", payload: "STATUS:x\r\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := decodeStatus([]byte(tt.payload))
			if tt.wantErr {
				var derr *DecodeError
				if !errors.As(err, &derr) {
					t.Fatalf("expected DecodeError, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, status)
			}
		})
	}
}

func TestDecodeAPInfo(t *testing.T) {
	payload := "+CWJAP:\"hydra\",\"aa:bb:cc:dd:ee:ff\",6,-41\r\n\r\n"

	info, err := decodeAPInfo([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []at.Field{
		at.Str("hydra"),
		at.Str("aa:bb:cc:dd:ee:ff"),
		at.Int(6),
		at.Int(-41),
	}
	if !reflect.DeepEqual(info, expected) {
		t.Errorf("expected %v, got %v", expected, info)
	}

	if _, err := decodeAPInfo([]byte("No AP\r\n")); err == nil {
		t.Error("expected an error without a record line")
	}
}

func TestDecodeMode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		mode    int
		wantErr bool
	}{
		{name: "Station", payload: "+CWMODE:1\r\n\r\n", mode: 1},
		{name: "Combined", payload: "+CWMODE:3\r\n\r\n", mode: 3},
		{name: "Missing line", payload: "\r\n", wantErr: true},
		{name: "Number missing", payload: "+CWMODE:\r\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := decodeMode([]byte(tt.payload))
			if tt.wantErr {
				var derr *DecodeError
				if !errors.As(err, &derr) {
					t.Fatalf("expected DecodeError, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mode != tt.mode {
				t.Errorf("expected mode %d, got %d", tt.mode, mode)
			}
		})
	}
}

func TestDecodeLocalIP(t *testing.T) {
	ip, err := decodeLocalIP([]byte("+CIFSR:STAIP,\"192.168.1.5\"\r\n+CIFSR:STAMAC,\"xx\"\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip != "192.168.1.5" {
		t.Errorf("expected 192.168.1.5, got %q", ip)
	}

	if _, err := decodeLocalIP([]byte("\r\n")); err == nil {
		t.Error("expected an error without a station address line")
	}
}

func TestDecodeScan(t *testing.T) {
	payload := "+CWLAP:(3,\"hydra\",-50,\"aa:bb:cc:dd:ee:ff\",6)\r\n" +
		"+CWLAP:(0,\"open-net\",-71,\"11:22:33:44:55:66\",11)\r\n\r\n"

	aps := decodeScan([]byte(payload))
	if len(aps) != 2 {
		t.Fatalf("expected 2 access points, got %d", len(aps))
	}
	expected := AccessPoint{
		at.Int(3),
		at.Str("hydra"),
		at.Int(-50),
		at.Str("aa:bb:cc:dd:ee:ff"),
		at.Int(6),
	}
	if !reflect.DeepEqual(aps[0], expected) {
		t.Errorf("expected %v, got %v", expected, aps[0])
	}

	if aps := decodeScan([]byte("\r\n")); len(aps) != 0 {
		t.Errorf("expected no access points, got %v", aps)
	}
}

func TestDecodePing(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		rtt     time.Duration
		ok      bool
		wantErr bool
	}{
		{name: "Prefixed reading", payload: "+PING:30\r\n\r\n", rtt: 30 * time.Millisecond, ok: true},
		{name: "Bare reading", payload: "+30\r\n\r\n", rtt: 30 * time.Millisecond, ok: true},
		{name: "Lost ping", payload: "+timeout\r\nERROR\r\n", ok: false},
		{name: "Reading missing after prefix", payload: "+PING:\r\n\r\n", ok: false},
		{name: "No reading line", payload: "busy p...\r\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rtt, ok, err := decodePing([]byte(tt.payload))
			if tt.wantErr {
				var derr *DecodeError
				if !errors.As(err, &derr) {
					t.Fatalf("expected DecodeError, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, ok)
			}
			if rtt != tt.rtt {
				t.Errorf("expected %v, got %v", tt.rtt, rtt)
			}
		})
	}
}
