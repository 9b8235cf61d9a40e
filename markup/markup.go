// Package markup renders inline colour tags of the form [rgb(r,g,b)]text[/]
// into terminal escape sequences.
package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Renderer paints markup for one terminal profile. It holds no mutable state
// and is safe for concurrent use.
type Renderer struct {
	profile termenv.Profile
}

// NewRenderer creates a Renderer. termenv.Ascii strips all colour.
func NewRenderer(profile termenv.Profile) *Renderer {
	return &Renderer{profile: profile}
}

// TrueColor returns a Renderer emitting 24-bit foreground colours.
func TrueColor() *Renderer {
	return NewRenderer(termenv.TrueColor)
}

// Plain returns a Renderer that drops every colour tag.
func Plain() *Renderer {
	return NewRenderer(termenv.Ascii)
}

// Tag wraps text in an rgb colour tag. Text is escaped so Visible(Tag(c, s))
// is s for any s.
func Tag(c colorful.Color, text string) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("[rgb(%d,%d,%d)]%s[/]", r, g, b, Escape(text))
}

// Tint returns a function wrapping lines in the colour tag for c.
func Tint(c colorful.Color) func(string) string {
	return func(line string) string {
		return Tag(c, line)
	}
}

// Escape protects literal opening brackets from being read as tags. Backslashes
// are doubled where they precede a bracket, including a trailing run that would
// precede the closing tag written by Tag.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	run := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			run++
			b.WriteByte('\\')
			continue
		case '[':
			b.WriteString(strings.Repeat(`\`, run+1))
		}
		run = 0
		b.WriteByte(text[i])
	}
	b.WriteString(strings.Repeat(`\`, run))
	return b.String()
}

// Paint converts markup into escape sequences. Text that is not a recognised
// tag is copied through. A tag left open runs to the end of s.
func (r *Renderer) Paint(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	p := painter{renderer: r, out: &out}

	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\':
			// A run of backslashes before a bracket is halved; an odd run makes
			// the bracket literal. Elsewhere backslashes are plain text.
			n := 1
			for i+n < len(s) && s[i+n] == '\\' {
				n++
			}
			if i+n < len(s) && s[i+n] == '[' {
				p.text.WriteString(strings.Repeat(`\`, n/2))
				if n%2 == 1 {
					p.text.WriteByte('[')
					n++
				}
			} else {
				p.text.WriteString(s[i : i+n])
			}
			i += n
		case s[i] == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				p.text.WriteString(s[i:])
				i = len(s)
				continue
			}
			tag := s[i+1 : i+end]
			if !p.apply(tag) {
				p.text.WriteString(s[i : i+end+1])
			}
			i += end + 1
		default:
			p.text.WriteByte(s[i])
			i++
		}
	}
	p.flush()
	return out.String()
}

// Visible returns the text a terminal would show for s.
func (r *Renderer) Visible(s string) string {
	return ansi.Strip(r.Paint(s))
}

type painter struct {
	renderer *Renderer
	out      *strings.Builder
	text     strings.Builder
	// stack of open colours as hex strings; the top styles pending text.
	stack  []string
	active string
}

// apply handles a tag body and reports whether it was recognised.
func (p *painter) apply(tag string) bool {
	if tag == "/" {
		p.switchTo(p.popped())
		return true
	}
	c, ok := parseRGB(tag)
	if !ok {
		return false
	}
	hex := c.Hex()
	p.switchTo(hex)
	p.stack = append(p.stack, hex)
	return true
}

func (p *painter) popped() string {
	if len(p.stack) > 0 {
		p.stack = p.stack[:len(p.stack)-1]
	}
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// switchTo flushes pending text when the colour changes.
func (p *painter) switchTo(hex string) {
	if hex == p.active {
		return
	}
	p.flush()
	p.active = hex
}

func (p *painter) flush() {
	if p.text.Len() == 0 {
		return
	}
	text := p.text.String()
	p.text.Reset()
	if p.active == "" || p.renderer.profile == termenv.Ascii {
		p.out.WriteString(text)
		return
	}
	profile := p.renderer.profile
	p.out.WriteString(profile.String(text).Foreground(profile.Color(p.active)).String())
}

// parseRGB reads "rgb(r,g,b)" or "#rrggbb".
func parseRGB(tag string) (colorful.Color, bool) {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "#") {
		c, err := colorful.Hex(tag)
		return c, err == nil
	}
	if !strings.HasPrefix(tag, "rgb(") || !strings.HasSuffix(tag, ")") {
		return colorful.Color{}, false
	}
	parts := strings.Split(tag[len("rgb("):len(tag)-1], ",")
	if len(parts) != 3 {
		return colorful.Color{}, false
	}
	var rgb [3]float64
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return colorful.Color{}, false
		}
		rgb[i] = float64(v) / 255.0
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, true
}
