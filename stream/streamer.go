package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"pkt.systems/pslog"
)

// State is the lifecycle position of a Streamer.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	errAlreadyRun   = errors.New("streamer already ran")
	errReceiverGone = errors.New("frame receiver stopped reading")
)

// TeardownGrace bounds how long Frames waits for a receiver to take the
// teardown buffer after cancellation.
const TeardownGrace = 250 * time.Millisecond

// StreamOptions configures one Streamer.
type StreamOptions struct {
	// Cadence is the pause between frames. Zero emits frames back to back.
	Cadence time.Duration
	// AltScreen switches the client to the alternate screen buffer.
	AltScreen bool
	// Colour drives the banner colour per tick. Nil leaves the banner untinted.
	Colour ColourCycle
	// Tint builds the colour directive for a banner colour.
	Tint func(colorful.Color) Tint
}

// Streamer produces an endless, cancellable sequence of composed frames for a
// single client. Scroll position and frame index belong to the Streamer and
// are never shared.
type Streamer struct {
	ID string

	frames     *FrameSequence
	banner     *BannerTemplate
	compositor *Compositor
	opts       StreamOptions

	state   atomic.Int32
	cycles  atomic.Uint64
	started atomic.Bool

	frameIndex int
	scrollTick uint64
}

// NewStreamer creates a Streamer over frames with the given banner.
func NewStreamer(frames *FrameSequence, banner *BannerTemplate, compositor *Compositor, opts StreamOptions) (*Streamer, error) {
	if frames == nil || frames.Len() == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrInvalidFormat)
	}
	if compositor == nil {
		return nil, fmt.Errorf("%w: compositor is required", ErrInvalidConfig)
	}
	if opts.Cadence < 0 {
		return nil, fmt.Errorf("%w: negative cadence %s", ErrInvalidConfig, opts.Cadence)
	}
	if banner == nil {
		banner = newTemplate(nil, Padding)
	}
	s := new(Streamer)
	s.ID = uuid.NewString()
	s.frames = frames
	s.banner = banner
	s.compositor = compositor
	s.opts = opts
	return s, nil
}

// State returns the current lifecycle state.
func (s *Streamer) State() State {
	return State(s.state.Load())
}

// Cycles returns the number of frames delivered so far.
func (s *Streamer) Cycles() uint64 {
	return s.cycles.Load()
}

// Run writes the setup sequence, then one composed frame per cadence until ctx
// is cancelled, then the teardown sequence. Cancellation is only observed
// between frames, so every frame reaches w whole. A writer may refuse a buffer
// by returning ctx's error once ctx is done; that ends the session the same way
// as cancellation. Cancellation returns nil; a
// failed write is returned after teardown has been attempted. Run may only be
// called once.
func (s *Streamer) Run(ctx context.Context, w io.Writer) (err error) {
	if !s.started.CompareAndSwap(false, true) {
		return errAlreadyRun
	}
	log := pslog.Ctx(ctx).With("session", s.ID, "source", s.frames.Source)
	log.Info("animation session started", "frames", s.frames.Len(), "cadence", s.opts.Cadence.String(), "alt_screen", s.opts.AltScreen)

	defer func() {
		s.state.Store(int32(StateDraining))
		if terr := write(w, TeardownSequence(s.opts.AltScreen)); terr != nil {
			log.Debug("teardown not delivered", "err", terr)
		}
		s.state.Store(int32(StateDone))
		if err != nil {
			log.Warn("animation session failed", "cycles", s.Cycles(), "err", err)
			return
		}
		log.Info("animation session finished", "cycles", s.Cycles())
	}()

	if err := write(w, SetupSequence(s.opts.AltScreen)); err != nil {
		if cancelled(ctx, err) {
			return nil
		}
		return fmt.Errorf("write setup: %w", err)
	}
	s.state.Store(int32(StateRunning))

	var timer *time.Timer
	if s.opts.Cadence > 0 {
		timer = time.NewTimer(s.opts.Cadence)
		defer timer.Stop()
	}

	for {
		if err := write(w, s.compose()); err != nil {
			if cancelled(ctx, err) {
				return nil
			}
			return fmt.Errorf("write frame: %w", err)
		}
		s.advance()
		var ticks <-chan time.Time
		if timer != nil {
			// The full cadence is waited after every write, however long it took.
			timer.Reset(s.opts.Cadence)
			ticks = timer.C
		}
		if !pause(ctx, ticks) {
			return nil
		}
	}
}

// cancelled reports whether err is the writer giving up because ctx ended.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// Frames runs the Streamer in its own goroutine and delivers every buffer it
// writes, setup and teardown included. The channel is closed after teardown.
// A receiver that stops reading once ctx is cancelled does not hold the
// goroutine: teardown is dropped after TeardownGrace.
func (s *Streamer) Frames(ctx context.Context) <-chan []byte {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		_ = s.Run(ctx, &chanWriter{ctx: ctx, ch: ch, grace: TeardownGrace})
	}()
	return ch
}

func (s *Streamer) compose() string {
	frame := s.frames.At(s.frameIndex)
	view := s.banner.View(s.scrollTick)
	var tint Tint
	if s.opts.Colour != nil && s.opts.Tint != nil {
		tint = s.opts.Tint(s.opts.Colour.At(s.scrollTick))
	}
	return CursorHome + s.compositor.Compose(frame.Lines(), view, tint)
}

func (s *Streamer) advance() {
	s.scrollTick++
	s.frameIndex = (s.frameIndex + 1) % s.frames.Len()
	s.cycles.Add(1)
}

// pause waits for the next tick and reports false once ctx is done. A pending
// cancellation wins over a pending tick. Without a timer it only polls ctx.
func pause(ctx context.Context, ticks <-chan time.Time) bool {
	if ctx.Err() != nil {
		return false
	}
	if ticks == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-ticks:
		return true
	}
}

type flusher interface {
	Flush() error
}

type httpFlusher interface {
	Flush()
}

func write(w io.Writer, buf string) error {
	if _, err := io.WriteString(w, buf); err != nil {
		return err
	}
	switch f := w.(type) {
	case flusher:
		return f.Flush()
	case httpFlusher:
		f.Flush()
	}
	return nil
}

type chanWriter struct {
	ctx   context.Context
	ch    chan<- []byte
	grace time.Duration
}

func (c *chanWriter) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	if c.ctx.Err() == nil {
		select {
		case c.ch <- b:
			return len(p), nil
		case <-c.ctx.Done():
			return 0, c.ctx.Err()
		}
	}

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case c.ch <- b:
		return len(p), nil
	case <-timer.C:
		return 0, errReceiverGone
	}
}
