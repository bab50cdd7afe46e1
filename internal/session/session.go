// Package session runs one interactive RCON session: it obtains a
// logged-in connection, follows the server's log file, and forwards
// operator commands until the operator types "exit".
//
// The controller owns at most one rcon.Client and one tail.Tailer.
// The tailer is always stopped and joined before the client is closed.
package session

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"time"

	"go.uber.org/atomic"

	"rconsole/internal/console"
	rcerr "rconsole/internal/errors"
	"rconsole/internal/metrics"
	"rconsole/rcon"
	"rconsole/tail"
	"rconsole/util"
)

// State is the controller's lifecycle position.
type State int32

const (
	AwaitingLogin State = iota
	Connected
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingLogin:
		return "awaiting-login"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Prompter asks the operator where to connect and with what password.
type Prompter interface {
	Credentials(ctx context.Context) (rcon.Endpoint, rcon.Credentials, error)
}

// LogFiles resolves the log file to follow for a server port.  An
// empty result means no tailing.
type LogFiles interface {
	LogFileFor(port int) string
}

// Config wires a Controller.
type Config struct {
	Console  *console.Console
	Prompter Prompter
	LogFiles LogFiles

	// Client is passed to rcon.Dial.  Its Logger and Metrics default
	// to the controller's.
	Client       rcon.Options
	TailInterval time.Duration

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Controller is the interactive loop for one session.  A Controller
// is single-use: call Run once.
type Controller struct {
	cfg     Config
	con     *console.Console
	logger  *util.Logger
	metrics *metrics.Collector

	state  atomic.Int32
	client *rcon.Client
	tailer *tail.Tailer
}

// New returns a controller in the AwaitingLogin state.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = util.NewLogger(0)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Client.Logger == nil {
		cfg.Client.Logger = cfg.Logger
	}
	if cfg.Client.Metrics == nil {
		cfg.Client.Metrics = cfg.Metrics
	}
	return &Controller{
		cfg:     cfg,
		con:     cfg.Console,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// State reports where the controller is in its lifecycle.
func (c *Controller) State() State { return State(c.state.Load()) }

func (c *Controller) setState(s State) {
	c.logger.Debug("session state %s -> %s", c.State(), s)
	c.state.Store(int32(s))
}

// Run logs in, then reads and executes commands until "exit", end of
// input or ctx cancellation.  It returns nil after "exit", io.EOF
// when input ends, and ctx.Err() on cancellation.  The session is
// closed on every path.
func (c *Controller) Run(ctx context.Context) error {
	defer c.close()

	if err := c.login(ctx); err != nil {
		return err
	}
	c.startTail(ctx)
	return c.loop(ctx)
}

// login repeats prompt → dial → login until it succeeds.  Neither a
// connection error nor a rejected password ends the loop.
func (c *Controller) login(ctx context.Context) error {
	for {
		ep, cred, err := c.cfg.Prompter.Credentials(ctx)
		if err != nil {
			return err
		}

		client, err := rcon.Dial(ctx, ep, c.cfg.Client)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.con.Errorf("%v", err)
			continue
		}

		ok, err := client.Login(ctx, cred.Password)
		if err != nil || !ok {
			client.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				c.logger.Verbose("login to %s: %v", ep, err)
			}
			c.con.Errorf("Connection failed, please check your details and try again.")
			continue
		}

		c.client = client
		c.setState(Connected)
		c.con.Noticef("%s to %s. Type \"exit\" to close the process.",
			c.con.Paint("Connected", console.StyleSuccess), ep)
		return nil
	}
}

func (c *Controller) startTail(ctx context.Context) {
	port := int(c.client.Endpoint().Port)
	var path string
	if c.cfg.LogFiles != nil {
		path = c.cfg.LogFiles.LogFileFor(port)
	}
	if path == "" {
		c.con.Warnf("Log file not specified for port %d. Continuing without log reading.", port)
		return
	}

	t, err := tail.Start(ctx, path, tail.Options{
		Interval: c.cfg.TailInterval,
		Emit:     func(line string) { c.con.Print(console.StyleTail, line) },
		OnError: func(err error) {
			c.metrics.RecordError(err.Error())
			c.con.Errorf("Error reading log file: %v", err)
		},
		Logger:   c.logger,
		Metrics:  c.metrics,
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.con.Errorf("Log file not found at %s", path)
	case err != nil:
		c.con.Errorf("Error reading log file: %v", err)
	default:
		c.logger.Verbose("following %s", t.Path())
		c.tailer = t
	}
}

func (c *Controller) loop(ctx context.Context) error {
	for {
		line, err := c.con.ReadLine(ctx, console.Prompt)
		if err != nil {
			return err
		}
		cmd := strings.TrimSpace(line)
		switch {
		case cmd == "":
			continue
		case strings.EqualFold(cmd, "exit"):
			return nil
		}
		c.execute(ctx, cmd)
	}
}

// execute runs one command.  Failures are reported inline and the
// session stays open.
func (c *Controller) execute(ctx context.Context, cmd string) {
	resp, err := c.client.Execute(ctx, cmd)
	if err == nil {
		c.con.Infof("%s", resp)
		return
	}
	if ctx.Err() != nil {
		return
	}

	c.con.Errorf("Error sending RCON command: %v", errors.Unwrap(err))
	switch {
	case rcerr.IsConnectionLost(err):
		c.con.Warnf("The connection to %s was lost. Type \"exit\" and log in again.", c.client.Endpoint())
	case rcerr.IsTimeout(err):
		c.con.Warnf("No response within %s; the server may be busy.", c.cfg.Client.Timeout)
	}
}

func (c *Controller) close() {
	wasConnected := c.State() == Connected
	c.setState(Closing)
	if wasConnected {
		c.con.Noticef("RCON Client shutting down")
	}

	if c.tailer != nil {
		c.tailer.Stop()
		c.tailer = nil
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.Verbose("close: %v", err)
		}
	}
	c.setState(Closed)

	if c.logger.Enabled(util.LogVerbose) {
		c.logger.Verbose("session metrics: %s", c.metrics.JSON())
	}
}
