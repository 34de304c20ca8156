// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package timeseries provides the fixed-capacity sample buffers that
// feed live charts. Each buffer holds the most recent N samples for one
// camera metric; pushing beyond capacity evicts the oldest sample.
package timeseries

import "sync"

// DefaultCapacity is the live-view buffer length: sixty one-second ticks,
// one minute of history on screen.
const DefaultCapacity = 60

// Buffer is a bounded FIFO ring of float64 samples.
//
// Invariants:
//   - Len() <= capacity at all times
//   - Snapshot() preserves arrival order, not sorted order; if the source
//     delivers samples out of timestamp order the buffer faithfully
//     preserves that violation
//
// Push and Snapshot are O(1) and O(n) respectively; the ring never
// reallocates after construction.
type Buffer struct {
	mu       sync.RWMutex
	samples  []float64
	capacity int
	start    int // index of the oldest sample
	length   int
}

// NewBuffer creates a buffer holding at most capacity samples.
// Non-positive capacities fall back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		samples:  make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest when the buffer is full.
func (b *Buffer) Push(sample float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.length < b.capacity {
		b.samples[(b.start+b.length)%b.capacity] = sample
		b.length++
		return
	}
	b.samples[b.start] = sample
	b.start = (b.start + 1) % b.capacity
}

// Snapshot returns the buffered samples in arrival order. The returned
// slice is a copy; mutating it cannot corrupt the buffer.
func (b *Buffer) Snapshot() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]float64, b.length)
	for i := 0; i < b.length; i++ {
		out[i] = b.samples[(b.start+i)%b.capacity]
	}
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.length
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Last returns the most recent sample, or 0 and false when empty.
func (b *Buffer) Last() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.length == 0 {
		return 0, false
	}
	return b.samples[(b.start+b.length-1)%b.capacity], true
}

// Reset discards all buffered samples, keeping capacity.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.length = 0
}
