package stream

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"pkt.systems/pslog"
)

// DefaultCacheSize is the number of distinct frame sources kept in memory.
const DefaultCacheSize = 32

type cacheEntry struct {
	source string
	frames *FrameSequence
}

// FrameStore loads frame sequences from JSON files and keeps the most recently
// used ones in memory. It is safe for concurrent use.
type FrameStore struct {
	capacity int
	loads    atomic.Int64

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

// NewFrameStore creates a FrameStore holding at most capacity sources.
func NewFrameStore(capacity int) *FrameStore {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	s := new(FrameStore)
	s.capacity = capacity
	s.entries = make(map[string]*list.Element)
	s.order = list.New()
	return s
}

// Loads reports how many times a source has been decoded from disk.
func (s *FrameStore) Loads() int64 {
	return s.loads.Load()
}

// Len reports the number of cached sources.
func (s *FrameStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Load returns the frame sequence stored at source, decoding it on first use.
// Sources must be absolute paths. Files ending in .gz, .zst or .lz4 are
// decompressed before decoding.
func (s *FrameStore) Load(ctx context.Context, source string) (*FrameSequence, error) {
	if strings.TrimSpace(source) == "" || !filepath.IsAbs(source) {
		return nil, fmt.Errorf("%w: frame source must be an absolute path: %q", ErrInvalidConfig, source)
	}
	source = filepath.Clean(source)
	if frames := s.lookup(source); frames != nil {
		return frames, nil
	}

	frames, err := decodeFrameFile(source)
	if err != nil {
		return nil, err
	}
	s.loads.Add(1)

	frames, evicted := s.insert(source, frames)
	log := pslog.Ctx(ctx)
	log.Info("frames loaded", "source", source, "frames", frames.Len())
	if evicted != "" {
		log.Debug("frames evicted", "source", evicted)
	}
	return frames, nil
}

func (s *FrameStore) lookup(source string) *FrameSequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[source]
	if !ok {
		return nil
	}
	s.order.MoveToFront(e)
	return e.Value.(*cacheEntry).frames
}

// insert stores frames unless a concurrent load got there first, in which case
// the cached sequence wins.
func (s *FrameStore) insert(source string, frames *FrameSequence) (*FrameSequence, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[source]; ok {
		s.order.MoveToFront(e)
		return e.Value.(*cacheEntry).frames, ""
	}
	s.entries[source] = s.order.PushFront(&cacheEntry{source: source, frames: frames})

	evicted := ""
	if s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		evicted = oldest.Value.(*cacheEntry).source
		delete(s.entries, evicted)
	}
	return frames, evicted
}

func decodeFrameFile(path string) (*FrameSequence, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open frames: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompressor(path, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	defer closeFn()

	blocks, err := decodeFrames(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	return NewFrameSequence(path, blocks), nil
}

func decompressor(path string, r io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case ".lz4":
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}

// decodeFrames reads a JSON array whose every element is a string. Nothing
// but whitespace may follow the array.
func decodeFrames(r io.Reader) ([]string, error) {
	var raw []json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("frames must be a JSON list of strings: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the frame list")
	}
	if len(raw) == 0 {
		return nil, errors.New("frames must be a non-empty list")
	}
	blocks := make([]string, len(raw))
	for i, msg := range raw {
		if len(msg) == 0 || msg[0] != '"' {
			return nil, fmt.Errorf("frame #%d is not a string", i)
		}
		if err := json.Unmarshal(msg, &blocks[i]); err != nil {
			return nil, fmt.Errorf("frame #%d: %v", i, err)
		}
	}
	return blocks, nil
}
