package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ansitx/util"
)

// pulseDepth is how far toward white a pulse reaches at full gain.
const pulseDepth = 0.6

var white = colorful.Color{R: 1, G: 1, B: 1}

var lutMemoizer util.Memoizer

// ParseColour accepts "r,g,b", "rgb(r,g,b)" or "#rrggbb".
func ParseColour(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("%w: colour %q: %v", ErrInvalidConfig, s, err)
		}
		return c, nil
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "rgb("), ")")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return colorful.Color{}, fmt.Errorf("%w: colour %q must be r,g,b", ErrInvalidConfig, s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("%w: colour component %q must be 0-255", ErrInvalidConfig, p)
		}
		rgb[i] = uint8(v)
	}
	return colorful.Color{
		R: float64(rgb[0]) / 255.0,
		G: float64(rgb[1]) / 255.0,
		B: float64(rgb[2]) / 255.0,
	}, nil
}

// A ColourCycle gives the banner colour for each tick.
type ColourCycle interface {
	At(tick uint64) colorful.Color
}

// A Pulse modulates a banner colour toward white on an eased cycle.
type Pulse struct {
	base colorful.Color
	lut  []float64
}

// NewPulse creates a Pulse cycling over length ticks. A length below 2 gives
// a constant colour.
func NewPulse(base colorful.Color, length int) *Pulse {
	p := new(Pulse)
	p.base = base
	if length >= 2 {
		p.lut = util.GenerateLutMemoized(length, &lutMemoizer)
	}
	return p
}

// Base returns the unmodulated colour.
func (p *Pulse) Base() colorful.Color {
	return p.base
}

// At returns the colour for tick.
func (p *Pulse) At(tick uint64) colorful.Color {
	if len(p.lut) == 0 {
		return p.base
	}
	gain := p.lut[tick%uint64(len(p.lut))]
	if gain == 0 {
		return p.base
	}
	return p.base.BlendHcl(white, gain*pulseDepth).Clamped()
}
