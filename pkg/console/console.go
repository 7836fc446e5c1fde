// Package console prints colored command-line output.
package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes headings, key/value lines and status messages.
type Printer struct {
	out     io.Writer
	heading *color.Color
	key     *color.Color
	good    *color.Color
	warn    *color.Color
	muted   *color.Color
}

// New returns a printer writing to out. Colors follow color.NoColor unless plain is set.
func New(out io.Writer, plain bool) *Printer {
	p := &Printer{
		out:     out,
		heading: color.New(color.FgCyan, color.Bold),
		key:     color.New(color.FgYellow),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgRed),
		muted:   color.New(color.FgHiBlack),
	}
	if plain {
		for _, c := range []*color.Color{p.heading, p.key, p.good, p.warn, p.muted} {
			c.DisableColor()
		}
	}
	return p
}

// Heading prints a bold section title.
func (p *Printer) Heading(format string, args ...any) {
	p.heading.Fprintf(p.out, format+"\n", args...)
}

// Field prints an indented label and value.
func (p *Printer) Field(label string, value any) {
	fmt.Fprintf(p.out, "  %s %v\n", p.key.Sprintf("%s:", label), value)
}

// Item prints a bullet line.
func (p *Printer) Item(format string, args ...any) {
	fmt.Fprintf(p.out, "  • %s\n", fmt.Sprintf(format, args...))
}

// Note prints a dimmed detail line.
func (p *Printer) Note(format string, args ...any) {
	fmt.Fprintf(p.out, "    %s\n", p.muted.Sprintf(format, args...))
}

// Success prints a green status line.
func (p *Printer) Success(format string, args ...any) {
	p.good.Fprintf(p.out, "✓ "+format+"\n", args...)
}

// Warn prints a red status line.
func (p *Printer) Warn(format string, args ...any) {
	p.warn.Fprintf(p.out, "⚠ "+format+"\n", args...)
}
