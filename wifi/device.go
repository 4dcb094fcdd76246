package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"i4.energy/across/wifigw/at"
)

// Status is the connection status the module reports via AT+CIPSTATUS.
// It is always read fresh from the module, never cached; the radio is
// the source of truth.
type Status int

const (
	// StatusConnecting means the station is still negotiating.
	StatusConnecting Status = 1
	// StatusApConnected means the station is associated and holds an
	// address.
	StatusApConnected Status = 2
	// StatusSocketOpen means a TCP or UDP link is up.
	StatusSocketOpen Status = 3
	// StatusSocketClosed means the link closed; the station is still
	// associated.
	StatusSocketClosed Status = 4
	// StatusNotConnected means the station is not associated with any
	// access point.
	StatusNotConnected Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusApConnected:
		return "ap connected"
	case StatusSocketOpen:
		return "socket open"
	case StatusSocketClosed:
		return "socket closed"
	case StatusNotConnected:
		return "not connected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Associated reports whether the status means the station sits on an
// access point. A closed socket still counts; only the connecting and
// not-connected statuses do not.
func (s Status) Associated() bool {
	switch s {
	case StatusApConnected, StatusSocketOpen, StatusSocketClosed:
		return true
	}
	return false
}

// Mode is the radio operating mode.
type Mode int

const (
	ModeStation   Mode = 1
	ModeSoftAP    Mode = 2
	ModeStationAP Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeStation:
		return "station"
	case ModeSoftAP:
		return "access point"
	case ModeStationAP:
		return "station+ap"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is the driver's view of the connection lifecycle. It reflects
// what the device has done, never a cached module status; Status and
// IsConnected always go to the wire.
type State int

const (
	StateUninitialized State = iota
	StateModeKnown
	StateJoining
	StateConnected
	StateJoinFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateModeKnown:
		return "mode known"
	case StateJoining:
		return "joining"
	case StateConnected:
		return "connected"
	case StateJoinFailed:
		return "join failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Secrets carries the credentials for joining a network. The password
// goes to the module and is never retained or logged; only the SSID is
// kept, for join idempotency.
type Secrets struct {
	SSID     string
	Password string
}

// AccessPoint is one scan record: the fields the firmware printed for a
// network, in wire order.
type AccessPoint []at.Field

// noAP is the record reported when the station is not associated.
func noAP() []at.Field {
	return []at.Field{at.Null(), at.Null(), at.Null(), at.Null()}
}

// Device drives a WiFi module over an AT command transport. All
// operations serialize on an internal lock; the protocol is half duplex
// and the module answers one command at a time.
type Device struct {
	mu        sync.Mutex
	transport Transport
	config    Config
	logger    *slog.Logger
	closed    bool

	state      State
	joinedSSID string
	states     chan State
}

// New creates a Device, dialing the transport through the configured
// Dialer. The returned Device is ready for commands; no initialization
// traffic is sent.
func New(ctx context.Context, config Config) (*Device, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Device{
		transport: transport,
		config:    config,
		logger:    config.Logger,
		states:    make(chan State, 16),
	}, nil
}

// Close shuts down the device and closes the transport. After Close the
// device cannot be reused.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true
	close(d.states)

	if d.transport != nil {
		return d.transport.Close()
	}
	return nil
}

// State reports the driver's current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// StateChanges returns a channel carrying lifecycle transitions. The
// channel is buffered; transitions are dropped rather than block the
// device when no one is draining it. Close closes the channel.
func (d *Device) StateChanges() <-chan State {
	return d.states
}

// setState records a transition and publishes it. The caller must hold
// d.mu.
func (d *Device) setState(s State) {
	if d.state == s {
		return
	}
	d.state = s
	d.logger.Debug("state change", "state", s.String())
	select {
	case d.states <- s:
	default:
		// Nobody is draining the channel; drop rather than block.
	}
}

// Status queries the module's connection status.
func (d *Device) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status()
}

func (d *Device) status() (Status, error) {
	reply, err := d.execute(Command{Text: at.CmdStatus, Timeout: 5 * time.Second})
	if err != nil {
		return 0, err
	}
	n, err := decodeStatus(reply.Payload)
	if err != nil {
		return 0, err
	}
	return Status(n), nil
}

// IsConnected reports whether the station is associated with an access
// point. A closed TCP link still counts as connected; only the
// connecting and not-connected statuses do not.
func (d *Device) IsConnected() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	status, err := d.status()
	if err != nil {
		return false, err
	}
	return status.Associated(), nil
}

// RemoteAP reports the access point the station is associated with.
// When the station is not associated the record of null fields is
// returned instead of an error.
func (d *Device) RemoteAP() ([]at.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remoteAP()
}

func (d *Device) remoteAP() ([]at.Field, error) {
	status, err := d.status()
	if err != nil {
		return nil, err
	}
	if status != StatusApConnected {
		return noAP(), nil
	}

	reply, err := d.execute(Command{Text: at.CmdQueryAP, Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	info, err := decodeAPInfo(reply.Payload)
	if err != nil {
		// The association can drop between the two queries; the
		// firmware then answers without a record line.
		return noAP(), nil
	}
	return info, nil
}

// Mode queries the radio operating mode.
func (d *Device) Mode() (Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode()
}

func (d *Device) mode() (Mode, error) {
	reply, err := d.execute(Command{Text: at.CmdQueryMode, Timeout: 5 * time.Second})
	if err != nil {
		return 0, err
	}
	n, err := decodeMode(reply.Payload)
	if err != nil {
		return 0, err
	}
	return Mode(n), nil
}

// SetMode switches the radio operating mode.
func (d *Device) SetMode(m Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(m)
}

func (d *Device) setMode(m Mode) error {
	if m < ModeStation || m > ModeStationAP {
		return fmt.Errorf("%w: %d", ErrInvalidMode, m)
	}
	if _, err := d.execute(Command{Text: at.SetMode(int(m)), Timeout: 3 * time.Second}); err != nil {
		return err
	}
	d.setState(StateModeKnown)
	return nil
}

// LocalIP queries the station's own address.
func (d *Device) LocalIP() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.execute(Command{Text: at.CmdLocalIP})
	if err != nil {
		return "", err
	}
	return decodeLocalIP(reply.Payload)
}

// Scan lists the access points the module can hear. An empty slice is a
// valid result; nothing may be in range.
func (d *Device) Scan() ([]AccessPoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.execute(Command{Text: at.CmdScan, Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return decodeScan(reply.Payload), nil
}

// Ping measures the round trip to host through the module. The boolean
// reports whether a reading came back; a lost ping is a result, not an
// error.
func (d *Device) Ping(host string) (time.Duration, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.execute(Command{Text: at.Ping(host), Timeout: 5 * time.Second})
	if err != nil {
		return 0, false, err
	}
	return decodePing(reply.Payload)
}

// JoinAP associates the station with an access point. The station mode
// is ensured first, and a join the device already completed is not
// repeated: the second call for the same SSID returns without touching
// the wire. A join whose reply lacks the association or address marker
// is logged as a warning, not failed; the module often delivers the
// markers late.
func (d *Device) JoinAP(secrets Secrets) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.joinAP(secrets)
}

func (d *Device) joinAP(secrets Secrets) error {
	if d.closed {
		return ErrAlreadyClosed
	}
	if d.transport == nil {
		return ErrNotInitialized
	}

	if d.state == StateConnected && d.joinedSSID == secrets.SSID {
		return nil
	}

	mode, err := d.mode()
	if err != nil {
		return err
	}
	if mode != ModeStation {
		if err := d.setMode(ModeStation); err != nil {
			return err
		}
	}
	d.setState(StateModeKnown)

	// The module keeps associations across power cycles; joining a
	// network it already sits on would drop and re-acquire the address.
	ap, err := d.remoteAP()
	if err != nil {
		return err
	}
	if len(ap) > 0 && ap[0].Kind == at.FieldString && ap[0].Str == secrets.SSID {
		d.joinedSSID = secrets.SSID
		d.setState(StateConnected)
		return nil
	}

	d.setState(StateJoining)
	reply, err := d.execute(Command{
		Text:    at.JoinAP(secrets.SSID, secrets.Password),
		Timeout: 15 * time.Second,
	})
	if err != nil {
		d.setState(StateJoinFailed)
		return err
	}

	if !bytes.Contains(reply.Payload, []byte(at.WifiConnected)) {
		d.logger.Warn("join reply missing association marker", "ssid", secrets.SSID)
	}
	if !bytes.Contains(reply.Payload, []byte(at.WifiGotIP)) {
		d.logger.Warn("join reply missing address marker", "ssid", secrets.SSID)
	}

	d.joinedSSID = secrets.SSID
	d.setState(StateConnected)
	return nil
}

// SoftReset reboots the module firmware. The module acknowledges by
// echoing the command; anything else fails the reset. After a good echo
// the module is left alone for the settle period before the device is
// used again.
func (d *Device) SoftReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.execute(Command{Text: at.CmdReset, Timeout: time.Second})
	if err != nil {
		return err
	}
	if string(bytes.Trim(reply.Payload, "\r\n")) != at.CmdReset {
		return fmt.Errorf("soft reset not acknowledged: %q", reply.Payload)
	}

	d.transport.Sleep(d.config.ResetSettle)
	d.joinedSSID = ""
	d.setState(StateUninitialized)
	return nil
}

// Connect drives JoinAP until the module is associated, retrying
// indefinitely on transient failures (timeouts, garbled replies, module
// errors on the queries). It stops early when the module heard the join
// and refused it every attempt, when the device is closed, and when ctx
// is done.
//
// A device that already believes it is joined to this network is
// checked against the module first: if the module no longer reports an
// association, the join record is dropped and a real join runs.
func (d *Device) Connect(ctx context.Context, secrets Secrets) error {
	d.mu.Lock()
	if d.state == StateConnected && d.joinedSSID == secrets.SSID {
		status, err := d.status()
		if err == nil && status.Associated() {
			d.mu.Unlock()
			return nil
		}
		d.joinedSSID = ""
		d.setState(StateModeKnown)
	}
	d.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.JoinAP(secrets)
		if err == nil {
			return nil
		}

		var perr *ProtocolError
		if errors.As(err, &perr) && at.IsJoin(perr.Cmd) {
			// The module heard the join and refused the credentials.
			return err
		}
		if errors.Is(err, ErrAlreadyClosed) || errors.Is(err, ErrNotInitialized) {
			return err
		}

		d.logger.Warn("join attempt failed, retrying",
			"ssid", secrets.SSID, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.config.RetryBackoff):
		}
	}
}
