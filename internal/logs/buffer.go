package logs

import (
	"github.com/charliek/logan/internal/domain"
)

// RingBuffer is a fixed-size circular buffer of numbered lines. It keeps the
// most recent lines written to it and is not safe for concurrent use.
type RingBuffer struct {
	lines    []domain.Line
	head     int // next write position
	count    int // current number of lines
	capacity int // max lines
}

// NewRingBuffer creates a new ring buffer with the given capacity. A
// capacity of zero yields a buffer that retains nothing.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RingBuffer{
		lines:    make([]domain.Line, capacity),
		capacity: capacity,
	}
}

// Write adds a line, evicting the oldest one when full
func (b *RingBuffer) Write(line domain.Line) {
	if b.capacity == 0 {
		return
	}

	b.lines[b.head] = line
	b.head = (b.head + 1) % b.capacity

	if b.count < b.capacity {
		b.count++
	}
}

// Read returns all buffered lines in the order they were written
func (b *RingBuffer) Read() []domain.Line {
	if b.count == 0 {
		return nil
	}

	result := make([]domain.Line, b.count)

	start := 0
	if b.count == b.capacity {
		start = b.head // oldest line is at head when full
	}

	for i := 0; i < b.count; i++ {
		result[i] = b.lines[(start+i)%b.capacity]
	}

	return result
}

// Count returns the current number of buffered lines
func (b *RingBuffer) Count() int {
	return b.count
}

// Capacity returns the maximum capacity of the buffer
func (b *RingBuffer) Capacity() int {
	return b.capacity
}

// Clear removes all lines from the buffer
func (b *RingBuffer) Clear() {
	b.head = 0
	b.count = 0
}
