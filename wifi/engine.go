package wifi

import (
	"fmt"
	"time"

	"i4.energy/across/wifigw/at"
)

// pollIdle is how long the engine sleeps between polls when the
// transport has no reply byte pending.
const pollIdle = 10 * time.Millisecond

// Command is one AT exchange: the text to send and the discipline for
// waiting on its reply. Zero Timeout and MaxAttempts fall back to the
// device defaults.
type Command struct {
	// Text is the command without line ending. CRLF is appended on the
	// wire.
	Text string
	// Timeout is the reply deadline for each attempt.
	Timeout time.Duration
	// MaxAttempts is how many times the command is written before the
	// engine gives up.
	MaxAttempts int
}

// Reply is a completed exchange: the payload judged acceptable for the
// command and the terminator that completed the final frame. For replies
// completed by a trailing OK the payload has the OK line already
// stripped; marker-completed and error-completed replies keep the full
// buffer.
type Reply struct {
	Payload    []byte
	Terminator at.Terminator
}

// Execute runs one command against the module and returns the accepted
// reply. Exchanges are serialized on the device lock; concurrent callers
// queue rather than interleave bytes on the wire.
func (d *Device) Execute(cmd Command) (Reply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.execute(cmd)
}

// execute implements the attempt loop. The caller must hold d.mu.
//
// An attempt ends when a terminator for the command appears or its
// deadline passes. An acceptable frame returns immediately; anything
// else burns the attempt and the command is rewritten after a fixed
// backoff. When the budget is spent the error depends on how the final
// attempt ended: a timeout surfaces as ErrTimeout, a completed but
// unacceptable frame as a ProtocolError carrying that frame.
func (d *Device) execute(cmd Command) (Reply, error) {
	if d.closed {
		return Reply{}, ErrAlreadyClosed
	}
	if d.transport == nil {
		return Reply{}, ErrNotInitialized
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = d.config.CommandTimeout
	}
	attempts := cmd.MaxAttempts
	if attempts == 0 {
		attempts = d.config.MaxAttempts
	}

	join := at.IsJoin(cmd.Text)
	ping := at.IsPing(cmd.Text)

	var (
		lastReply []byte
		timedOut  bool
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			d.transport.Sleep(d.config.RetryBackoff)
		}

		d.logger.Debug("tx", "cmd", cmd.Text, "attempt", attempt)
		if _, err := d.transport.Write([]byte(cmd.Text + at.CRLF)); err != nil {
			return Reply{}, fmt.Errorf("write command %q: %w", cmd.Text, err)
		}

		buf, term, expired, err := d.readFrame(join, timeout)
		if err != nil {
			return Reply{}, fmt.Errorf("read reply to %q: %w", cmd.Text, err)
		}
		lastReply = buf
		timedOut = expired
		if expired {
			d.logger.Debug("rx timeout", "cmd", cmd.Text, "attempt", attempt)
			continue
		}

		d.logger.Debug("rx", "cmd", cmd.Text, "reply", string(buf))

		switch {
		case join && term == at.TermWifiGotIP:
			return Reply{Payload: buf, Terminator: term}, nil
		case ping && term == at.TermError:
			// An unreachable host still answers with a well-formed
			// ERROR frame; the caller decodes it as a lost ping.
			return Reply{Payload: buf, Terminator: term}, nil
		case term == at.TermOK:
			return Reply{Payload: buf[:len(buf)-len(at.EndOK)], Terminator: term}, nil
		}
		// Frame completed but is not acceptable for this command.
	}

	if timedOut {
		return Reply{}, fmt.Errorf("command %s: %w", cmd.Text, ErrTimeout)
	}
	return Reply{}, &ProtocolError{Cmd: cmd.Text, LastReply: lastReply}
}

// readFrame accumulates reply bytes until a terminator appears or the
// deadline passes. The terminator test runs after every byte, so a
// marker is recognized on exactly the byte that completes it. The buffer
// read so far is returned even on timeout.
func (d *Device) readFrame(join bool, timeout time.Duration) (buf []byte, term at.Terminator, timedOut bool, err error) {
	deadline := d.transport.Now().Add(timeout)
	for {
		if !d.transport.Now().Before(deadline) {
			return buf, at.TermNone, true, nil
		}
		if !d.transport.ByteAvailable() {
			d.transport.Sleep(pollIdle)
			continue
		}
		b, err := d.transport.ReadByte()
		if err != nil {
			return buf, at.TermNone, false, err
		}
		buf = append(buf, b)
		if t, done := at.Terminated(buf, join); done {
			return buf, t, false, nil
		}
	}
}
