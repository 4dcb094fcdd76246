package wifi

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Device is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the module.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Device that has not been successfully initialized.
	//
	// This can occur if the dialer produced no transport or if the Device
	// was not created via New.
	ErrNotInitialized = errors.New("device not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Device that has
	// already been closed, or when an operation is attempted after Close.
	ErrAlreadyClosed = errors.New("device already closed")

	// ErrTimeout is returned when the final attempt at a command runs out
	// of time without the reply reaching a terminator.
	//
	// Earlier attempts that time out are retried silently; only the last
	// one surfaces as ErrTimeout.
	ErrTimeout = errors.New("command timed out")

	// ErrInvalidMode is returned by SetMode for a mode outside the range
	// the radio understands (1 through 3).
	ErrInvalidMode = errors.New("invalid radio mode")
)

// ProtocolError is returned when every attempt at a command completed a
// reply frame but none of the replies was acceptable for that command.
// LastReply holds the raw payload of the final attempt so callers can log
// or inspect what the module actually said.
type ProtocolError struct {
	Cmd       string
	LastReply []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("no acceptable reply to %s: %q", e.Cmd, e.LastReply)
}

// DecodeError is returned when a command succeeded on the wire but its
// reply is missing the line the operation needed to decode.
type DecodeError struct {
	What string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("reply missing %s", e.What)
}
