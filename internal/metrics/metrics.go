// Package metrics provides lightweight, lock-free counters for
// tracking what happened during one rconsole session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for an RCON session and its tailer.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	loginAttempts  atomic.Int64
	loginFailures  atomic.Int64
	commandsSent   atomic.Int64
	commandsFailed atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	tailLines      atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Login metrics ────────────────────────────────────────────────────

// LoginAttempted records one login exchange and whether it succeeded.
func (c *Collector) LoginAttempted(ok bool) {
	if c == nil {
		return
	}
	c.loginAttempts.Add(1)
	if !ok {
		c.loginFailures.Add(1)
	}
}

// LoginFailures returns how many logins were rejected.
func (c *Collector) LoginFailures() int64 {
	if c == nil {
		return 0
	}
	return c.loginFailures.Load()
}

// ── Command metrics ──────────────────────────────────────────────────

// CommandSent records a command exchange.
func (c *Collector) CommandSent() {
	if c == nil {
		return
	}
	c.commandsSent.Add(1)
}

// CommandFailed records a failed exchange and stores its message.
func (c *Collector) CommandFailed(msg string) {
	if c == nil {
		return
	}
	c.commandsFailed.Add(1)
	c.RecordError(msg)
}

// Commands returns the total number of commands sent.
func (c *Collector) Commands() int64 {
	if c == nil {
		return 0
	}
	return c.commandsSent.Load()
}

// FailedCommands returns the number of failed exchanges.
func (c *Collector) FailedCommands() int64 {
	if c == nil {
		return 0
	}
	return c.commandsFailed.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the server.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the server.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Tail metrics ─────────────────────────────────────────────────────

// TailLine records one line emitted by the log tailer.
func (c *Collector) TailLine() {
	if c == nil {
		return
	}
	c.tailLines.Add(1)
}

// TailLines returns the number of tailed lines.
func (c *Collector) TailLines() int64 {
	if c == nil {
		return 0
	}
	return c.tailLines.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	LoginAttempts    int64  `json:"login_attempts"`
	LoginFailures    int64  `json:"login_failures"`
	CommandsSent     int64  `json:"commands_sent"`
	CommandsFailed   int64  `json:"commands_failed"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	TailLines        int64  `json:"tail_lines"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		LoginAttempts:  c.loginAttempts.Load(),
		LoginFailures:  c.loginFailures.Load(),
		CommandsSent:   c.commandsSent.Load(),
		CommandsFailed: c.commandsFailed.Load(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		TailLines:      c.tailLines.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
