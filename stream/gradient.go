package stream

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultGradientCycle is the number of frames a gradient takes to loop.
const DefaultGradientCycle = 64

// GradientStop is one hue keypoint. Pos runs from 0 to 1.
type GradientStop struct {
	Hue float64 `yaml:"hue"`
	Pos float64 `yaml:"pos"`
}

// GradientTable stores a look-up table of colours interpolated by hue.
type GradientTable []GradientStop

// Validate checks there are at least two stops in ascending order within [0, 1].
func (g GradientTable) Validate() error {
	if len(g) < 2 {
		return fmt.Errorf("%w: gradient needs at least two stops", ErrInvalidConfig)
	}
	for i, stop := range g {
		if stop.Pos < 0 || stop.Pos > 1 {
			return fmt.Errorf("%w: gradient stop %d pos %v outside [0, 1]", ErrInvalidConfig, i, stop.Pos)
		}
		if i > 0 && stop.Pos < g[i-1].Pos {
			return fmt.Errorf("%w: gradient stops must be ordered by pos", ErrInvalidConfig)
		}
	}
	return nil
}

// GetColor gets a colour at the specified point on the look-up table.
func (g GradientTable) GetColor(t, c, l float64) colorful.Color {
	for i := 0; i < len(g)-1; i++ {
		c1 := g[i]
		c2 := g[i+1]
		if c1.Pos <= t && t <= c2.Pos {
			if c2.Pos == c1.Pos {
				return colorful.Hcl(c1.Hue, c, l).Clamped()
			}
			h := (((t - c1.Pos) / (c2.Pos - c1.Pos)) * (c2.Hue - c1.Hue)) + c1.Hue
			return colorful.Hcl(h, c, l).Clamped()
		}
	}

	// Before the first or past the last keypoint.
	if len(g) > 0 && t < g[0].Pos {
		return colorful.Hcl(g[0].Hue, c, l).Clamped()
	}
	return colorful.Hcl(g[len(g)-1].Hue, c, l).Clamped()
}

// A Gradient walks the banner colour around a GradientTable, keeping the
// chroma and lightness of a base colour.
type Gradient struct {
	table     GradientTable
	chroma    float64
	lightness float64
	cycle     int
}

// NewGradient creates a Gradient that loops every cycle ticks.
func NewGradient(table GradientTable, base colorful.Color, cycle int) *Gradient {
	g := new(Gradient)
	g.table = table
	_, g.chroma, g.lightness = base.Hcl()
	if cycle < 1 {
		cycle = DefaultGradientCycle
	}
	g.cycle = cycle
	return g
}

// At returns the colour for tick.
func (g *Gradient) At(tick uint64) colorful.Color {
	t := float64(tick%uint64(g.cycle)) / float64(g.cycle)
	return g.table.GetColor(t, g.chroma, g.lightness)
}
