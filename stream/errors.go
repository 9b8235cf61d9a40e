package stream

import "errors"

var (
	// ErrNotFound is returned when a frame source does not exist.
	ErrNotFound = errors.New("frame source not found")
	// ErrInvalidFormat is returned when decoded frame data is not a non-empty list of strings.
	ErrInvalidFormat = errors.New("invalid frame data")
	// ErrInvalidConfig is returned for malformed sources, colours and registry entries.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownAnimation is returned when a name is missing from the registry.
	ErrUnknownAnimation = errors.New("unknown animation")
)
