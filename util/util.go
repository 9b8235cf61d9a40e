package util

import (
	"sync"

	"github.com/fogleman/ease"
)

// GenerateLut builds a symmetric look-up table that eases from 0 up to 1 and
// back down again over length steps.
func GenerateLut(length int) []float64 {
	lut := make([]float64, length)
	if length < 2 {
		return lut
	}
	increment := 1.0 / float64(length/2)
	for i, j := 0, length-1; i < length/2; i, j = i+1, j-1 {
		value := float64(i) * increment
		lut[i] = ease.InOutQuad(value)
		lut[j] = ease.InOutQuad(value)
	}
	return lut
}

// Memoizer caches look-up tables by length. The zero value is ready to use and
// it is safe for concurrent use.
type Memoizer struct {
	mu     sync.Mutex
	tables map[int][]float64
}

// GenerateLutMemoized returns the table for length, generating it on first use.
// Returned tables are shared and must not be modified.
func GenerateLutMemoized(length int, m *Memoizer) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lut, ok := m.tables[length]; ok {
		return lut
	}
	if m.tables == nil {
		m.tables = make(map[int][]float64)
	}
	lut := GenerateLut(length)
	m.tables[length] = lut
	return lut
}
