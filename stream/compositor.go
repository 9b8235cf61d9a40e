package stream

import "strings"

// A Painter turns markup text into terminal output.
type Painter interface {
	Paint(markup string) string
}

// A Tint wraps one banner line in a colour directive.
type Tint = func(line string) string

// Compositor merges a content frame and a banner view into one buffer that
// can be redrawn in place from the top-left corner.
type Compositor struct {
	painter Painter
}

// NewCompositor creates a Compositor painting through p.
func NewCompositor(p Painter) *Compositor {
	c := new(Compositor)
	c.painter = p
	return c
}

// Compose writes every content line, a blank separator and every tinted banner
// line, each followed by an erase to end of line, then clears the rest of the
// screen.
func (c *Compositor) Compose(content, banner []string, tint Tint) string {
	var b strings.Builder
	for _, line := range content {
		c.writeLine(&b, line)
	}
	c.writeLine(&b, "")
	for _, line := range banner {
		if tint != nil {
			line = tint(line)
		}
		c.writeLine(&b, line)
	}
	b.WriteString(EraseBelow)
	return b.String()
}

func (c *Compositor) writeLine(b *strings.Builder, line string) {
	if line != "" {
		b.WriteString(c.painter.Paint(line))
	}
	b.WriteString(EraseLine)
	b.WriteByte('\n')
}
