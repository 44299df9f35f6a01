package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

// Console prints the INFO/WARN/ERROR milestone lines of the CLI.
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole writes to f, coloring only when f is a terminal.
func NewConsole(f *os.File) *Console {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	if !tty {
		return &Console{out: f}
	}
	return &Console{out: colorable.NewColorable(f), color: true}
}

// NewPlainConsole writes uncolored lines to w.
func NewPlainConsole(w io.Writer) *Console {
	return &Console{out: w}
}

// Stdout is the console on standard output.
var Stdout = NewConsole(os.Stdout)

// Stderr is the console on standard error.
var Stderr = NewConsole(os.Stderr)

func (c *Console) paint(s, style string) string {
	if !c.color {
		return s
	}
	return ansi.Color(s, style)
}

// Bold highlights a value inside a message.
func (c *Console) Bold(v interface{}) string {
	return c.paint(fmt.Sprint(v), "+b")
}

func (c *Console) line(label, style, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, "%s: %s\n", c.paint(label, style), fmt.Sprintf(format, args...))
}

// Info prints a green INFO line.
func (c *Console) Info(format string, args ...interface{}) {
	c.line("INFO", "green", format, args...)
}

// Warn prints a yellow WARN line.
func (c *Console) Warn(format string, args ...interface{}) {
	c.line("WARN", "yellow", format, args...)
}

// Error prints a red ERROR line.
func (c *Console) Error(format string, args ...interface{}) {
	c.line("ERROR", "red", format, args...)
}
