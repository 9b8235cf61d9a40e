package stream

import "strings"

// Frame is one pre-rendered text block of an animation.
type Frame struct {
	lines []string
}

// NewFrame splits a text block into its lines.
func NewFrame(block string) Frame {
	return Frame{lines: splitLines(block)}
}

// Lines returns the lines of the frame. The slice must not be modified.
func (f Frame) Lines() []string {
	return f.lines
}

// FrameSequence is an immutable, ordered, non-empty list of frames loaded from Source.
type FrameSequence struct {
	Source string
	frames []Frame
}

// NewFrameSequence builds a sequence from raw text blocks.
func NewFrameSequence(source string, blocks []string) *FrameSequence {
	s := new(FrameSequence)
	s.Source = source
	s.frames = make([]Frame, len(blocks))
	for i, b := range blocks {
		s.frames[i] = NewFrame(b)
	}
	return s
}

// Len returns the number of frames.
func (s *FrameSequence) Len() int {
	return len(s.frames)
}

// At returns the frame at index i.
func (s *FrameSequence) At(i int) Frame {
	return s.frames[i]
}

// splitLines breaks text on \n, \r\n and \r. A trailing line break does not
// produce an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
