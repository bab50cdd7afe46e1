// Package rcon implements the client side of the Source RCON protocol
// over a single persistent stream connection.
//
// A session is Dial → Login → Execute… → Close.  Exchanges are
// serialized; a response split over several packets is reassembled
// by following each command with an empty terminator packet and
// collecting bodies until the terminator's echo arrives.
package rcon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	rcerr "rconsole/internal/errors"
	"rconsole/internal/metrics"
	"rconsole/internal/retry"
	"rconsole/internal/transport"
	"rconsole/util"
)

// Endpoint identifies one RCON server.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) String() string { return util.FormatAddr(e.Host, int(e.Port)) }

// Credentials are used once, during Login.
type Credentials struct {
	Password string
}

// Options tune a Client.  The zero value is usable.
type Options struct {
	// Dialer opens the stream (default: plain TCP with DefaultConnTimeout).
	Dialer transport.Dialer
	// Timeout bounds each exchange; 0 disables deadlines.
	Timeout time.Duration
	// ConnectAttempts is how many times a retryable dial error is tried.
	ConnectAttempts int
	Logger          *util.Logger
	Metrics         *metrics.Collector
}

// DefaultConnTimeout is used when Options.Dialer is nil.
const DefaultConnTimeout = 10 * time.Second

// aLongTimeAgo is a non-zero deadline in the past, used to abort
// blocked I/O immediately.
var aLongTimeAgo = time.Unix(1, 0)

// Client is one RCON session.  It is owned by a single controller;
// Close may be called from any goroutine.
type Client struct {
	endpoint Endpoint
	conn     net.Conn
	rd       *bufio.Reader
	timeout  time.Duration
	logger   *util.Logger
	metrics  *metrics.Collector

	mu            sync.Mutex // one exchange at a time
	nextID        atomic.Int32
	authenticated atomic.Bool
	closed        atomic.Bool
}

// Dial connects to ep.  Retryable failures (refused, temporary DNS)
// are retried with backoff up to opts.ConnectAttempts.  The returned
// error wraps an [rcerr.NetworkError] with Op "dial".
func Dial(ctx context.Context, ep Endpoint, opts Options) (*Client, error) {
	d := opts.Dialer
	if d == nil {
		d = &transport.TCPDialer{Timeout: DefaultConnTimeout}
	}
	logger := opts.logger()
	addr := ep.String()

	b := retry.ConnectBackoff(opts.ConnectAttempts)
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Verbose("connect attempt %d to %s failed: %v (retrying in %s)",
			attempt, addr, err, wait.Truncate(time.Millisecond))
	}

	var conn net.Conn
	err := b.Do(ctx, func(attempt int) error {
		logger.Debug("dialing %s (attempt %d)", addr, attempt)
		c, err := d.Dial(ctx, "tcp", addr)
		if err != nil {
			nerr := rcerr.Wrap("dial", addr, err)
			if !rcerr.IsRetryable(nerr) || ctx.Err() != nil {
				return retry.Permanent(nerr)
			}
			return nerr
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	logger.Verbose("connected to %s", conn.RemoteAddr())
	return NewClient(conn, ep, opts), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, ep Endpoint, opts Options) *Client {
	return &Client{
		endpoint: ep,
		conn:     conn,
		rd:       bufio.NewReader(conn),
		timeout:  opts.Timeout,
		logger:   opts.logger(),
		metrics:  opts.Metrics,
	}
}

func (o Options) logger() *util.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return util.NewLogger(0)
}

// Endpoint returns the server this client talks to.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// Authenticated reports whether Login has succeeded.
func (c *Client) Authenticated() bool { return c.authenticated.Load() }

// Login authenticates with password.  It returns false with a nil
// error when the server rejects the password; a non-nil error means
// the exchange itself failed.
func (c *Client) Login(ctx context.Context, password string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return false, rcerr.ErrSessionClosed
	}

	id := c.newID()
	var ok bool
	err := c.exchange(ctx, func() error {
		if err := c.send(Packet{ID: id, Type: TypeAuth, Body: password}); err != nil {
			return err
		}
		for {
			p, err := c.recv()
			if err != nil {
				return err
			}
			switch {
			case p.Type != TypeAuthResponse:
				// Source servers send an empty RESPONSE_VALUE first.
				c.logger.Debug("login: skipping packet id=%d type=%d", p.ID, p.Type)
			case p.ID == AuthFailedID:
				ok = false
				return nil
			case p.ID == id:
				ok = true
				return nil
			default:
				return fmt.Errorf("%w: auth response id %d, want %d", rcerr.ErrMalformedPacket, p.ID, id)
			}
		}
	})
	if err != nil {
		return false, rcerr.Wrap("login", c.endpoint.String(), err)
	}

	c.authenticated.Store(ok)
	c.metrics.LoginAttempted(ok)
	if !ok {
		c.logger.Verbose("login to %s: %v", c.endpoint, rcerr.ErrAuthFailed)
	}
	return ok, nil
}

// Execute runs command and returns the reassembled response.  Every
// failure is a *[rcerr.CommandError]; use [rcerr.IsConnectionLost] to
// tell whether the session is still usable.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed.Load():
		return "", rcerr.WrapCommand(command, rcerr.ErrSessionClosed)
	case !c.authenticated.Load():
		return "", rcerr.WrapCommand(command, rcerr.ErrNotConnected)
	case len(command) > MaxCommandLength:
		return "", rcerr.WrapCommand(command,
			fmt.Errorf("command is %d bytes, the limit is %d", len(command), MaxCommandLength))
	}

	c.metrics.CommandSent()
	id := c.newID()
	term := c.newID()

	var resp strings.Builder
	err := c.exchange(ctx, func() error {
		if err := c.send(Packet{ID: id, Type: TypeExecCommand, Body: command}); err != nil {
			return err
		}
		// The terminator goes out only after the first response packet.
		// Vanilla Minecraft reads one packet per socket read and drops
		// the connection when two arrive together.
		sentTerm := false
		for {
			p, err := c.recv()
			if err != nil {
				return err
			}
			switch {
			case sentTerm && p.ID == term:
				return nil
			case p.ID == id:
				resp.WriteString(p.Body)
			case p.ID < id:
				// Leftovers from an earlier exchange, such as the
				// trailing mirror packet Source servers send.
				c.logger.Debug("discarding stale packet id=%d", p.ID)
				continue
			default:
				return fmt.Errorf("%w: unexpected id %d", rcerr.ErrMalformedPacket, p.ID)
			}
			if !sentTerm {
				if err := c.send(Packet{ID: term, Type: TypeResponseValue}); err != nil {
					return err
				}
				sentTerm = true
			}
		}
	})
	if err != nil {
		c.metrics.CommandFailed(err.Error())
		return "", rcerr.WrapCommand(command, err)
	}
	return resp.String(), nil
}

// Close releases the connection.  It is idempotent and safe to call
// concurrently with an exchange, which then fails.
func (c *Client) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	c.authenticated.Store(false)
	c.logger.Verbose("closing RCON connection to %s", c.endpoint)
	return c.conn.Close()
}

// ── internals ────────────────────────────────────────────────────────

// newID returns the next positive request id.
func (c *Client) newID() int32 {
	id := c.nextID.Inc()
	if id <= 0 {
		c.nextID.Store(1)
		id = 1
	}
	return id
}

// exchange runs fn under the session deadline.  Cancelling ctx aborts
// blocked I/O.
func (c *Client) exchange(ctx context.Context, fn func() error) error {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil && !c.closed.Load() {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(aLongTimeAgo) //nolint:errcheck
	})

	err := fn()

	if !stop() && ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		c.conn.SetDeadline(time.Time{}) //nolint:errcheck
	}
	return err
}

func (c *Client) send(p Packet) error {
	c.logger.Debug("send id=%d type=%d len=%d", p.ID, p.Type, len(p.Body))
	n, err := WritePacket(c.conn, p)
	c.metrics.BytesSent(int64(n))
	return err
}

func (c *Client) recv() (Packet, error) {
	p, n, err := ReadPacket(c.rd)
	c.metrics.BytesReceived(int64(n))
	if err == nil {
		c.logger.Debug("recv id=%d type=%d len=%d", p.ID, p.Type, len(p.Body))
	}
	return p, err
}
