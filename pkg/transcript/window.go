// Package transcript buffers transcribed speech and periodically
// fact-checks what was said most recently.
package transcript

import (
	"errors"
	"strings"
	"sync"
)

// DefaultCapacity is how many segments a Window keeps.
const DefaultCapacity = 15

var ErrEmptySegment = errors.New("empty transcript segment")

// Window holds the most recent transcript segments, oldest first.
type Window struct {
	segments []string
	capacity int
	version  uint64
	mu       sync.RWMutex
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Window{
		segments: make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Segments returns a copy of the buffered segments.
func (w *Window) Segments() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	segments := make([]string, len(w.segments))
	copy(segments, w.segments)
	return segments
}

// Text joins the buffered segments with single spaces.
func (w *Window) Text() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return strings.Join(w.segments, " ")
}

// Store appends segment, evicting the oldest one when full. Noise markers
// and blank segments are rejected.
func (w *Window) Store(segment string) error {
	segment = strings.TrimSpace(segment)
	if segment == "" || isNoise(segment) {
		return ErrEmptySegment
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.segments = append(w.segments, segment)
	if len(w.segments) > w.capacity {
		w.segments = w.segments[len(w.segments)-w.capacity:]
	}
	w.version++
	return nil
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.segments)
}

// Version increases with every stored segment.
func (w *Window) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.segments = w.segments[:0]
	w.version++
}
