package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

func testFrames(n int) *FrameSequence {
	blocks := make([]string, n)
	for i := range blocks {
		blocks[i] = fmt.Sprintf("frame-%d\nrow", i)
	}
	return NewFrameSequence("/frames.json", blocks)
}

func newTestStreamer(t *testing.T, frames *FrameSequence, banner *BannerTemplate, opts StreamOptions) *Streamer {
	t.Helper()
	s, err := NewStreamer(frames, banner, NewCompositor(identityPainter{}), opts)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	return s
}

// captureWriter records every write and cancels after a number of frames.
type captureWriter struct {
	mu        sync.Mutex
	writes    []string
	cancel    context.CancelFunc
	cancelAt  int
	failAt    int
	failAfter int
	frames    int
}

var errBroken = errors.New("broken pipe")

func (w *captureWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.writes) + 1
	if w.failAt > 0 && n == w.failAt {
		w.writes = append(w.writes, "<failed>")
		return 0, errBroken
	}
	if w.failAfter > 0 && n > w.failAfter {
		return 0, errBroken
	}
	w.writes = append(w.writes, string(p))
	if strings.HasPrefix(string(p), CursorHome) {
		w.frames++
		if w.cancelAt > 0 && w.frames == w.cancelAt && w.cancel != nil {
			w.cancel()
		}
	}
	return len(p), nil
}

func frameNumber(t *testing.T, buf string) int {
	t.Helper()
	idx := strings.Index(buf, "frame-")
	if idx < 0 {
		t.Fatalf("no frame marker in %q", buf)
	}
	var n int
	if _, err := fmt.Sscanf(buf[idx:], "frame-%d", &n); err != nil {
		t.Fatalf("parse frame marker: %v", err)
	}
	return n
}

func TestRunEmitsFramesInOrderWithWraparound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStreamer(t, testFrames(3), BuildTicker("hi"), StreamOptions{})
	w := &captureWriter{cancel: cancel, cancelAt: 5}

	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(w.writes) != 7 {
		t.Fatalf("expected setup, 5 frames and teardown, got %d writes", len(w.writes))
	}
	if w.writes[0] != SetupSequence(false) {
		t.Fatalf("first write = %q", w.writes[0])
	}
	if w.writes[6] != TeardownSequence(false) {
		t.Fatalf("last write = %q", w.writes[6])
	}
	want := []int{0, 1, 2, 0, 1}
	for i, buf := range w.writes[1:6] {
		if got := frameNumber(t, buf); got != want[i] {
			t.Fatalf("frame %d = %d, want %d", i, got, want[i])
		}
		if !strings.HasPrefix(buf, CursorHome) || !strings.HasSuffix(buf, EraseBelow) {
			t.Fatalf("frame %d is not a complete composition: %q", i, buf)
		}
	}
	for _, buf := range w.writes {
		if strings.Contains(buf, ShowCursor) && buf != w.writes[6] {
			t.Fatalf("teardown emitted early: %q", buf)
		}
	}
	if s.State() != StateDone {
		t.Fatalf("state = %s, want done", s.State())
	}
	if s.Cycles() != 5 {
		t.Fatalf("cycles = %d, want 5", s.Cycles())
	}
}

func TestRunAltScreenFraming(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStreamer(t, testFrames(1), nil, StreamOptions{AltScreen: true})
	w := &captureWriter{cancel: cancel, cancelAt: 2}

	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w.writes[0] != "\x1b[?1049h\x1b[2J\x1b[H\x1b[?25l" {
		t.Fatalf("setup = %q", w.writes[0])
	}
	if last := w.writes[len(w.writes)-1]; last != "\x1b[?25h\x1b[?1049l" {
		t.Fatalf("teardown = %q", last)
	}
}

func TestRunInlineFraming(t *testing.T) {
	if got := SetupSequence(false); got != "\x1b[2J\x1b[H\x1b[?25l" {
		t.Fatalf("setup = %q", got)
	}
	if got := TeardownSequence(false); got != "\x1b[?25h" {
		t.Fatalf("teardown = %q", got)
	}
}

func TestRunAdvancesBannerOncePerFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	banner := BuildTicker("AB")
	s := newTestStreamer(t, testFrames(2), banner, StreamOptions{})
	w := &captureWriter{cancel: cancel, cancelAt: 4}

	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, buf := range w.writes[1:5] {
		want := banner.View(uint64(i))[0] + EraseLine
		if !strings.Contains(buf, want) {
			t.Fatalf("frame %d missing banner view %q: %q", i, want, buf)
		}
	}
}

func TestRunTintsBannerWithPulseColour(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	colour, err := ParseColour("255,0,0")
	if err != nil {
		t.Fatalf("ParseColour: %v", err)
	}
	var tints []string
	s := newTestStreamer(t, testFrames(1), BuildTicker("x"), StreamOptions{
		Colour: NewPulse(colour, 0),
		Tint: func(c colorful.Color) Tint {
			tints = append(tints, c.Hex())
			return func(line string) string { return "{" + line + "}" }
		},
	})
	w := &captureWriter{cancel: cancel, cancelAt: 2}
	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tints) != 2 || tints[0] != "#ff0000" {
		t.Fatalf("tints = %v", tints)
	}
	if !strings.Contains(w.writes[1], "{x") {
		t.Fatalf("banner not tinted: %q", w.writes[1])
	}
}

func TestRunWriteFailureStillTearsDown(t *testing.T) {
	s := newTestStreamer(t, testFrames(2), nil, StreamOptions{})
	w := &captureWriter{failAt: 3}

	err := s.Run(context.Background(), w)
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected broken pipe, got %v", err)
	}
	if last := w.writes[len(w.writes)-1]; last != TeardownSequence(false) {
		t.Fatalf("expected teardown after failure, got %q", last)
	}
	if s.State() != StateDone {
		t.Fatalf("state = %s", s.State())
	}
}

func TestRunTeardownFailureDoesNotMaskError(t *testing.T) {
	s := newTestStreamer(t, testFrames(2), nil, StreamOptions{})
	w := &captureWriter{failAfter: 2}

	err := s.Run(context.Background(), w)
	if !errors.Is(err, errBroken) || !strings.Contains(err.Error(), "write frame") {
		t.Fatalf("expected frame write error, got %v", err)
	}
}

func TestRunCancelledWithDeadClientReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStreamer(t, testFrames(2), nil, StreamOptions{})
	w := &captureWriter{cancel: cancel, cancelAt: 1, failAfter: 2}

	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("teardown failure leaked: %v", err)
	}
}

func TestRunSetupFailure(t *testing.T) {
	s := newTestStreamer(t, testFrames(1), nil, StreamOptions{})
	w := &captureWriter{failAt: 1}
	err := s.Run(context.Background(), w)
	if !errors.Is(err, errBroken) || !strings.Contains(err.Error(), "write setup") {
		t.Fatalf("expected setup error, got %v", err)
	}
	if s.Cycles() != 0 {
		t.Fatalf("no frame should be emitted")
	}
}

func TestRunOnlyOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestStreamer(t, testFrames(1), nil, StreamOptions{})
	w := &captureWriter{cancel: cancel, cancelAt: 1}
	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.Run(ctx, w); err == nil {
		t.Fatalf("expected second Run to fail")
	}
}

func TestRunWithCadenceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStreamer(t, testFrames(3), nil, StreamOptions{Cadence: time.Millisecond})
	w := &captureWriter{cancel: cancel, cancelAt: 3}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, w) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
	if s.Cycles() != 3 {
		t.Fatalf("cycles = %d, want 3", s.Cycles())
	}
}

func TestFramesDeliversCompleteBuffers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStreamer(t, testFrames(3), BuildTicker("ticker"), StreamOptions{})

	var got []string
	for buf := range s.Frames(ctx) {
		got = append(got, string(buf))
		if len(got) == 4 {
			cancel()
		}
	}
	if len(got) < 5 {
		t.Fatalf("expected setup, frames and teardown, got %d buffers", len(got))
	}
	if got[0] != SetupSequence(false) || got[len(got)-1] != TeardownSequence(false) {
		t.Fatalf("framing wrong: first %q last %q", got[0], got[len(got)-1])
	}
	for i, buf := range got[1 : len(got)-1] {
		if !strings.HasPrefix(buf, CursorHome) || !strings.HasSuffix(buf, EraseBelow) {
			t.Fatalf("buffer %d truncated: %q", i, buf)
		}
		if n := frameNumber(t, buf); n != i%3 {
			t.Fatalf("buffer %d shows frame %d", i, n)
		}
	}
}

func TestNewStreamerValidates(t *testing.T) {
	c := NewCompositor(identityPainter{})
	if _, err := NewStreamer(nil, nil, c, StreamOptions{}); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected invalid format, got %v", err)
	}
	if _, err := NewStreamer(testFrames(1), nil, nil, StreamOptions{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if _, err := NewStreamer(testFrames(1), nil, c, StreamOptions{Cadence: -time.Second}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateStarting: "starting",
		StateRunning:  "running",
		StateDraining: "draining",
		StateDone:     "done",
		State(9):      "state(9)",
	} {
		if got := state.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	}
}

func TestFramesReceiverWalksAway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStreamer(t, testFrames(3), nil, StreamOptions{})

	ch := s.Frames(ctx)
	<-ch
	<-ch
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != StateDone {
		if time.Now().After(deadline) {
			t.Fatalf("streamer stuck in %s after receiver left", s.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	for range ch {
	}
}

// slowWriter takes delay for every write and records when each one started
// and finished.
type slowWriter struct {
	delay  time.Duration
	starts []time.Time
	ends   []time.Time
	cancel context.CancelFunc
	limit  int
}

func (w *slowWriter) Write(p []byte) (int, error) {
	w.starts = append(w.starts, time.Now())
	time.Sleep(w.delay)
	w.ends = append(w.ends, time.Now())
	if len(w.ends) == w.limit {
		w.cancel()
	}
	return len(p), nil
}

func TestRunWaitsFullCadenceAfterSlowWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cadence := 20 * time.Millisecond
	s := newTestStreamer(t, testFrames(2), nil, StreamOptions{Cadence: cadence})
	// setup plus four frames
	w := &slowWriter{delay: 30 * time.Millisecond, cancel: cancel, limit: 5}

	if err := s.Run(ctx, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Gaps are measured between frames: buffer 1 is the first frame.
	for i := 2; i < 5; i++ {
		if gap := w.starts[i].Sub(w.ends[i-1]); gap < cadence {
			t.Fatalf("frame %d written %s after the previous one finished, want at least %s", i, gap, cadence)
		}
	}
}
