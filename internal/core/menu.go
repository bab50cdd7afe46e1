package core

import (
	"context"
	"errors"
	"io"
	"strings"

	"rconsole/internal/console"
	"rconsole/internal/session"
	"rconsole/util"
)

// Menu is the top-level loop: "login" starts a session, "?" prints
// help and "exit" quits.
type Menu struct {
	Console *console.Console
	// Session is the template for each login's controller.
	Session session.Config
	Logger  *util.Logger
}

// Run serves the menu until "exit", end of input or cancellation.  It
// returns nil for the first two and ctx.Err() for the last.
func (m *Menu) Run(ctx context.Context) error {
	defer m.closeDialer()

	for {
		m.Console.Noticef(`Type "login" to access the server, "?" for help.`)
		line, err := m.Console.ReadLine(ctx, console.Prompt)
		if errors.Is(err, io.EOF) {
			return m.bye()
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "?":
			m.Console.Help()
		case "login":
			m.Console.Noticef("Enter authentication information to access the server")
			err := session.New(m.Session).Run(ctx)
			switch {
			case errors.Is(err, io.EOF):
				return m.bye()
			case err != nil:
				return err
			}
		case "exit":
			return m.bye()
		default:
			m.Console.Errorf(`Invalid input. Type "login" to proceed, "?" for help.`)
		}
	}
}

func (m *Menu) bye() error {
	m.Console.Noticef("Closing the program...")
	return nil
}

func (m *Menu) closeDialer() {
	d := m.Session.Client.Dialer
	if d == nil {
		return
	}
	if err := d.Close(); err != nil && m.Logger != nil {
		m.Logger.Verbose("closing transport: %v", err)
	}
}
