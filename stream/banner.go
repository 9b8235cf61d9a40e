package stream

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"
)

// Padding is the blank run appended to every banner line so a full line is
// always off-screen ready to scroll into view.
const Padding = 10

//go:embed banner.txt
var defaultBannerArt string

// BannerKind selects how a banner is built.
type BannerKind string

const (
	// BannerBlock is multi-line fixed art.
	BannerBlock BannerKind = "block"
	// BannerTicker is a single scrolling caption.
	BannerTicker BannerKind = "ticker"
)

// ParseBannerKind accepts "block" (or its alias "big") and "ticker".
func ParseBannerKind(s string) (BannerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block", "big":
		return BannerBlock, nil
	case "ticker":
		return BannerTicker, nil
	default:
		return "", fmt.Errorf("%w: unknown banner kind %q", ErrInvalidConfig, s)
	}
}

// BannerTemplate is a set of lines that all have exactly Width runes.
type BannerTemplate struct {
	lines [][]rune
	width int
}

// DefaultBlock builds the block template from the embedded logo.
func DefaultBlock() *BannerTemplate {
	return BuildBlock(defaultBannerArt)
}

// BuildBlock drops blank lines from raw, strips trailing whitespace and pads
// every line to the longest line plus Padding.
func BuildBlock(raw string) *BannerTemplate {
	var trimmed [][]rune
	longest := 0
	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r := []rune(strings.TrimRightFunc(line, unicode.IsSpace))
		if len(r) > longest {
			longest = len(r)
		}
		trimmed = append(trimmed, r)
	}
	return newTemplate(trimmed, longest+Padding)
}

// BuildTicker collapses whitespace in caption into single spaces and returns a
// one-line template.
func BuildTicker(caption string) *BannerTemplate {
	text := []rune(strings.Join(strings.Fields(caption), " "))
	return newTemplate([][]rune{text}, len(text)+Padding)
}

func newTemplate(lines [][]rune, width int) *BannerTemplate {
	t := new(BannerTemplate)
	t.width = width
	t.lines = make([][]rune, len(lines))
	for i, line := range lines {
		padded := make([]rune, width)
		n := copy(padded, line)
		for j := n; j < width; j++ {
			padded[j] = ' '
		}
		t.lines[i] = padded
	}
	return t
}

// Width returns the common line length in runes.
func (t *BannerTemplate) Width() int {
	return t.width
}

// Lines returns the unscrolled template.
func (t *BannerTemplate) Lines() []string {
	return t.View(0)
}

// Offset returns the rotation applied at tick.
func (t *BannerTemplate) Offset(tick uint64) int {
	w := t.width
	if w < 1 {
		w = 1
	}
	return int(tick % uint64(w))
}

// View returns every line rotated left by the same offset for tick.
func (t *BannerTemplate) View(tick uint64) []string {
	o := t.Offset(tick)
	out := make([]string, len(t.lines))
	for i, line := range t.lines {
		if o >= len(line) {
			out[i] = string(line)
			continue
		}
		var b strings.Builder
		b.Grow(len(line))
		b.WriteString(string(line[o:]))
		b.WriteString(string(line[:o]))
		out[i] = b.String()
	}
	return out
}
