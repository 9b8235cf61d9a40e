package stream

import (
	"fmt"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
)

// An Animation is a registry entry describing where frames live and how the
// banner under them looks.
type Animation struct {
	Frames  string `yaml:"frames"`
	Banner  string `yaml:"banner"`
	Caption string `yaml:"caption"`
	// Art replaces the built-in logo for block banners.
	Art   string `yaml:"art"`
	Color string `yaml:"color"`
	// Pulse is the length in frames of a brightness cycle; 0 disables it.
	Pulse int `yaml:"pulse"`
	// Gradient cycles the banner hue instead of pulsing it.
	Gradient GradientTable `yaml:"gradient"`
	// Cycle is the gradient loop length in frames.
	Cycle int `yaml:"cycle"`
}

// Validate checks the frame path, banner kind and colour.
func (a Animation) Validate() error {
	if !filepath.IsAbs(a.Frames) {
		return fmt.Errorf("%w: frames must be an absolute path: %q", ErrInvalidConfig, a.Frames)
	}
	if _, err := ParseBannerKind(a.Banner); err != nil {
		return err
	}
	if _, err := ParseColour(a.Color); err != nil {
		return err
	}
	if a.Pulse < 0 {
		return fmt.Errorf("%w: pulse %d must not be negative", ErrInvalidConfig, a.Pulse)
	}
	if len(a.Gradient) > 0 {
		if err := a.Gradient.Validate(); err != nil {
			return err
		}
	}
	if a.Cycle < 0 {
		return fmt.Errorf("%w: cycle %d must not be negative", ErrInvalidConfig, a.Cycle)
	}
	return nil
}

// ColourCycle builds the banner colour source for base.
func (a Animation) ColourCycle(base colorful.Color) ColourCycle {
	if len(a.Gradient) > 0 {
		return NewGradient(a.Gradient, base, a.Cycle)
	}
	return NewPulse(base, a.Pulse)
}

// BannerTemplate builds the banner for kind.
func (a Animation) BannerTemplate(kind BannerKind) *BannerTemplate {
	if kind == BannerTicker {
		return BuildTicker(a.Caption)
	}
	if a.Art != "" {
		return BuildBlock(a.Art)
	}
	return DefaultBlock()
}
