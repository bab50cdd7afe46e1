// Package console owns the operator's terminal.  Every byte written to
// the terminal goes through one Console, which serializes writers and
// redraws the input prompt after output that arrives while the
// operator is typing.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Prompt is the input prompt used at the menu and inside a session.
const Prompt = "> "

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\x1b[2K"

type lineResult struct {
	text string
	err  error
}

// terminal is the part of x/term the console uses for no-echo input.
type terminal interface {
	IsTerminal(fd int) bool
	GetState(fd int) (*term.State, error)
	Restore(fd int, state *term.State) error
	ReadPassword(fd int) ([]byte, error)
}

type xterm struct{}

func (xterm) IsTerminal(fd int) bool { return term.IsTerminal(fd) }
func (xterm) GetState(fd int) (*term.State, error) { return term.GetState(fd) }
func (xterm) Restore(fd int, state *term.State) error { return term.Restore(fd, state) }
func (xterm) ReadPassword(fd int) ([]byte, error) { return term.ReadPassword(fd) }

// Console serializes terminal output and reads operator input.
type Console struct {
	in     io.Reader
	out    io.Writer
	styler Styler
	tty    bool
	term   terminal

	mu        sync.Mutex // guards out, prompt, prompting
	prompt    string
	prompting bool

	readMu   sync.Mutex // one reader at a time
	startRd  sync.Once
	want     chan struct{}
	lines    chan lineResult
	pending  bool // a line was requested but not yet consumed
	stray    chan lineResult // an abandoned password read still owns the input
	quit     chan struct{}
	quitOnce sync.Once
}

// New returns a Console reading from in and writing to out.
func New(in io.Reader, out io.Writer, styler Styler) *Console {
	if styler == nil {
		styler = Plain{}
	}
	return &Console{
		in:     in,
		out:    out,
		styler: styler,
		tty:    isTerminal(out),
		term:   xterm{},
		want:   make(chan struct{}),
		lines:  make(chan lineResult, 1),
		quit:   make(chan struct{}),
	}
}

// Paint decorates text without writing it, for composing mixed-style
// lines.
func (c *Console) Paint(text string, s Style) string { return c.styler.Paint(text, s) }

// Print writes text as one or more complete lines.  If the operator is
// at a prompt, the prompt is erased first and redrawn afterwards.
func (c *Console) Print(s Style, text string) {
	text = strings.TrimSuffix(text, "\n")
	c.write(c.styler.Paint(text, s) + "\n")
}

// Printf formats and prints a line.
func (c *Console) Printf(s Style, format string, args ...any) {
	c.Print(s, fmt.Sprintf(format, args...))
}

// Infof prints an "(Info): " line.
func (c *Console) Infof(format string, args ...any) {
	c.Printf(StyleInfo, "(Info): "+format, args...)
}

// Warnf prints a "(Warning): " line.
func (c *Console) Warnf(format string, args ...any) {
	c.Printf(StyleWarning, "(Warning): "+format, args...)
}

// Errorf prints an "(Error): " line.
func (c *Console) Errorf(format string, args ...any) {
	c.Printf(StyleError, "(Error): "+format, args...)
}

// Noticef prints a "[*] " status line.
func (c *Console) Noticef(format string, args ...any) {
	c.Printf(StylePlain, "[*] "+format, args...)
}

// Writer adapts the console to io.Writer so a util.Logger can share
// the terminal.  Each Write is printed as a unit in style s.
func (c *Console) Writer(s Style) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		c.Print(s, string(p))
		return len(p), nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func (c *Console) write(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prompting {
		erase := "\r"
		if c.tty {
			erase = clearLine
		}
		text = erase + text + c.prompt
	}
	io.WriteString(c.out, text) //nolint:errcheck
}

func (c *Console) showPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
	c.prompting = true
	io.WriteString(c.out, prompt) //nolint:errcheck
}

func (c *Console) endPrompt() {
	c.mu.Lock()
	c.prompting = false
	c.mu.Unlock()
}

// ReadLine shows prompt and returns the next input line without its
// terminator.  It returns io.EOF when input is exhausted and ctx.Err()
// when ctx is cancelled first.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	if c.stray != nil {
		return c.awaitStray(ctx, prompt)
	}
	return c.readLine(ctx, prompt)
}

func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	c.startRd.Do(func() { go c.readLoop() })

	c.showPrompt(prompt)
	defer c.endPrompt()

	if !c.pending {
		select {
		case c.want <- struct{}{}:
			c.pending = true
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	select {
	case r := <-c.lines:
		c.pending = false
		return r.text, r.err
	case <-ctx.Done():
		// The request stays outstanding; the next ReadLine picks up
		// whatever the operator types.
		return "", ctx.Err()
	}
}

// awaitStray hands the line an abandoned password read is blocked on
// to the current reader.  The terminal was restored when the read was
// abandoned, so the line is echoed.
func (c *Console) awaitStray(ctx context.Context, prompt string) (string, error) {
	c.showPrompt(prompt)
	defer c.endPrompt()

	select {
	case r := <-c.stray:
		c.stray = nil
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ReadPassword shows prompt and reads a line without echo when input
// is a terminal.  Otherwise it behaves like ReadLine.
//
// x/term reads cannot be interrupted.  On cancellation the terminal
// state is restored and the blocked read is kept; the next ReadLine or
// ReadPassword receives its line instead of starting another read.
func (c *Console) ReadPassword(ctx context.Context, prompt string) (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.stray != nil {
		return c.awaitStray(ctx, prompt)
	}
	fd, ok := c.inputFd()
	if !ok || c.pending {
		return c.readLine(ctx, prompt)
	}
	state, err := c.term.GetState(fd)
	if err != nil {
		return c.readLine(ctx, prompt)
	}

	c.mu.Lock()
	io.WriteString(c.out, prompt) //nolint:errcheck
	c.mu.Unlock()

	done := make(chan lineResult, 1)
	go func() {
		pw, err := c.term.ReadPassword(fd)
		done <- lineResult{string(pw), err}
	}()

	select {
	case r := <-done:
		c.write("\n")
		return r.text, r.err
	case <-ctx.Done():
		c.term.Restore(fd, state) //nolint:errcheck
		c.stray = done
		c.write("\n")
		return "", ctx.Err()
	}
}

func (c *Console) inputFd() (int, bool) {
	f, ok := c.in.(interface{ Fd() uintptr })
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, c.term.IsTerminal(fd)
}

// readLoop reads one line per request so no input is consumed while
// nobody is waiting for it (a password prompt may need the terminal).
func (c *Console) readLoop() {
	br := bufio.NewReader(c.in)
	for {
		select {
		case <-c.want:
		case <-c.quit:
			return
		}

		text, err := br.ReadString('\n')
		if err == io.EOF && text != "" {
			err = nil
		}
		text = strings.TrimRight(text, "\r\n")

		select {
		case c.lines <- lineResult{text, err}:
		case <-c.quit:
			return
		}
	}
}

// Close stops the input reader.  A read already blocked on the
// underlying input is abandoned.
func (c *Console) Close() error {
	c.quitOnce.Do(func() { close(c.quit) })
	return nil
}
