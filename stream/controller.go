package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"pkt.systems/pslog"
)

// Renderer bundles the text-rendering collaborators used to build frames.
type Renderer struct {
	// Colour paints markup with colour.
	Colour Painter
	// Plain paints markup without colour.
	Plain Painter
	// Tint wraps a banner line in a colour directive.
	Tint func(colorful.Color) Tint
}

// Options override registry settings for one session.
type Options struct {
	// Banner replaces the registered banner kind when set.
	Banner string
	// Delay in seconds; zero uses the configured default.
	Delay float64
	// AltScreen replaces the configured screen mode when set.
	AltScreen *bool
	// NoColour paints frames and banner without colour.
	NoColour bool
}

// Controller resolves animation names into ready-to-run Streamers.
type Controller struct {
	config   Config
	store    *FrameStore
	renderer Renderer
}

// NewController creates a Controller backed by store.
func NewController(config Config, store *FrameStore, renderer Renderer) *Controller {
	c := new(Controller)
	c.config = config
	c.store = store
	c.renderer = renderer
	return c
}

// Names returns the registered animation names in order.
func (c *Controller) Names() []string {
	return c.config.Names()
}

// Lookup returns the registry entry for name.
func (c *Controller) Lookup(name string) (Animation, error) {
	a, ok := c.config.Animations[name]
	if !ok {
		return Animation{}, fmt.Errorf("%w: %q", ErrUnknownAnimation, name)
	}
	return a, nil
}

// Open loads the frames for name and returns a Streamer for one client. All
// validation happens here, before anything is written to the client.
func (c *Controller) Open(ctx context.Context, name string, opts Options) (*Streamer, error) {
	a, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}

	bannerKind := a.Banner
	if opts.Banner != "" {
		bannerKind = opts.Banner
	}
	kind, err := ParseBannerKind(bannerKind)
	if err != nil {
		return nil, err
	}
	colour, err := ParseColour(a.Color)
	if err != nil {
		return nil, err
	}
	delay := opts.Delay
	if delay == 0 {
		delay = c.config.DefaultDelay
	}
	if delay < 0 {
		return nil, fmt.Errorf("%w: negative delay %v", ErrInvalidConfig, delay)
	}
	altScreen := c.config.AltScreen
	if opts.AltScreen != nil {
		altScreen = *opts.AltScreen
	}

	frames, err := c.store.Load(ctx, a.Frames)
	if err != nil {
		return nil, err
	}

	streamOpts := StreamOptions{
		Cadence:   Delay(delay),
		AltScreen: altScreen,
	}
	painter := c.renderer.Colour
	if opts.NoColour || painter == nil {
		painter = c.renderer.Plain
	} else {
		streamOpts.Colour = a.ColourCycle(colour)
		streamOpts.Tint = c.renderer.Tint
	}
	if painter == nil {
		return nil, fmt.Errorf("%w: no painter configured", ErrInvalidConfig)
	}

	s, err := NewStreamer(frames, a.BannerTemplate(kind), NewCompositor(painter), streamOpts)
	if err != nil {
		return nil, err
	}
	pslog.Ctx(ctx).Debug("animation opened", "animation", name, "session", s.ID, "banner", string(kind), "delay", delay)
	return s, nil
}

// Warm loads every registered animation so the first client does not pay for
// decoding. Failures are logged and skipped.
func (c *Controller) Warm(ctx context.Context) {
	log := pslog.Ctx(ctx)
	for _, name := range c.Names() {
		if _, err := c.store.Load(ctx, c.config.Animations[name].Frames); err != nil {
			log.Warn("animation warm-up failed", "animation", name, "err", err)
		}
	}
}

// Check loads every registered animation and returns all failures.
func (c *Controller) Check(ctx context.Context) error {
	var errs []error
	for _, name := range c.Names() {
		if _, err := c.store.Load(ctx, c.config.Animations[name].Frames); err != nil {
			errs = append(errs, fmt.Errorf("animation %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
