package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Title is the terminal window title set by Init.
const Title = "RCON CLIENT"

const banner = ` ______     ______     ______     __   __
/\  == \   /\  ___\   /\  __ \   /\ "-.\ \
\ \  __<   \ \ \____  \ \ \/\ \  \ \ \-.  \
 \ \_\ \_\  \ \_____\  \ \_____\  \ \_\\"\_\
  \/_/ /_/   \/_____/   \/_____/   \/_/ \/_/`

// Init performs the one-time terminal setup: window title (terminals
// only) and the startup banner.  Call it once from the entry point.
func (c *Console) Init() {
	if c.tty {
		c.mu.Lock()
		c.out.Write([]byte("\x1b]0;" + Title + "\a")) //nolint:errcheck
		c.mu.Unlock()
	}
	c.Print(StyleSuccess, banner)
}

// Help explains how to enable RCON on a Minecraft server.
func (c *Console) Help() {
	r := lipgloss.NewRenderer(c.out)
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	if c.styler.Colored() {
		box = box.BorderForeground(lipgloss.Color("2"))
	}

	lines := []string{
		"How to enable RCON on your server:",
		"1. Open server.properties and set enable-rcon=" + c.Paint("true", StyleSuccess),
		"2. Set an RCON " + c.Paint("port", StyleWarning) + "     --> rcon-port=****",
		"3. Set an RCON " + c.Paint("password", StyleError) + " --> rcon-password=********",
		"Now you can connect to the server remotely, from any PC with this app.",
	}
	c.Print(StylePlain, box.Render(strings.Join(lines, "\n")))
}
