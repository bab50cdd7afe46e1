package console

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Style is a hint describing what a piece of text is.  How (or
// whether) it is decorated is up to the Styler.
type Style int

const (
	StylePlain Style = iota
	StyleInfo
	StyleSuccess
	StyleWarning
	StyleError
	StyleTail
	StyleEmphasis
)

// Styler renders text for a Style.  The rest of the program emits
// style hints and never raw escape codes.
type Styler interface {
	Paint(text string, s Style) string
	// Colored reports whether Paint adds escape sequences.
	Colored() bool
}

// Plain is the Styler used when output is not a colour terminal.
type Plain struct{}

func (Plain) Paint(text string, _ Style) string { return text }
func (Plain) Colored() bool                      { return false }

// Color decorates text with ANSI colours.
type Color struct {
	palette map[Style]*color.Color
}

// NewColor returns a Color styler.  Colours are forced on: the
// decision to use them has already been made by [NewStyler].
func NewColor() *Color {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		c.EnableColor()
		return c
	}
	return &Color{palette: map[Style]*color.Color{
		StyleSuccess:  mk(color.FgGreen),
		StyleWarning:  mk(color.FgYellow),
		StyleError:    mk(color.FgRed),
		StyleTail:     mk(color.FgGreen),
		StyleEmphasis: mk(color.FgCyan),
	}}
}

func (c *Color) Paint(text string, s Style) string {
	p, ok := c.palette[s]
	if !ok || text == "" {
		return text
	}
	return p.Sprint(text)
}

func (c *Color) Colored() bool { return true }

// NewStyler picks Color when out is a terminal and colour has not been
// disabled by flag or by the NO_COLOR convention.
func NewStyler(out io.Writer, noColor bool) Styler {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return Plain{}
	}
	if isTerminal(out) {
		return NewColor()
	}
	return Plain{}
}

func isTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
