package wifi

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

// SimTransport is a test helper that simulates a WiFi module. Replies
// are scripted: each Write consumes the next entry in the script and
// makes its bytes readable one at a time, the way the engine drains a
// serial port. A Write with no scripted reply left produces nothing,
// which the engine sees as a timeout.
//
// Time is simulated. Sleep advances a fake clock instead of the wall
// clock, so retry backoff and timeout behavior are deterministic and
// cost nothing to run.
type SimTransport struct {
	mu      sync.Mutex
	replies [][]byte
	queue   []byte
	writes  []string
	now     time.Time
	closed  bool
}

// NewSimTransport creates a simulator with an empty script and the
// clock at the epoch.
func NewSimTransport() *SimTransport {
	return &SimTransport{now: time.Unix(0, 0)}
}

// Reply appends one scripted reply, raw module bytes including line
// endings and terminators.
func (t *SimTransport) Reply(raw string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, []byte(raw))
}

func (t *SimTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, errors.New("transport closed")
	}
	t.writes = append(t.writes, strings.TrimRight(string(p), "\r\n"))
	if len(t.replies) > 0 {
		t.queue = append(t.queue, t.replies[0]...)
		t.replies = t.replies[1:]
	}
	return len(p), nil
}

func (t *SimTransport) ByteAvailable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue) > 0
}

func (t *SimTransport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return 0, io.EOF
	}
	b := t.queue[0]
	t.queue = t.queue[1:]
	return b, nil
}

func (t *SimTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *SimTransport) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

func (t *SimTransport) Sleep(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = t.now.Add(d)
}

// Writes returns the commands written so far, line endings stripped.
func (t *SimTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.writes)
}

// Elapsed returns how much simulated time has passed.
func (t *SimTransport) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now.Sub(time.Unix(0, 0))
}

// SimDialer hands out a prepared SimTransport.
type SimDialer struct {
	Transport *SimTransport
}

func (d SimDialer) Dial(ctx context.Context) (Transport, error) {
	return d.Transport, nil
}
