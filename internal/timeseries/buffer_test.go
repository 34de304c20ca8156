// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package timeseries

import (
	"testing"
)

func TestBufferPushBelowCapacity(t *testing.T) {
	b := NewBuffer(5)

	b.Push(1)
	b.Push(2)
	b.Push(3)

	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(snap))
	}
	for i, want := range []float64{1, 2, 3} {
		if snap[i] != want {
			t.Errorf("Sample %d: expected %v, got %v", i, want, snap[i])
		}
	}
}

func TestBufferEvictsOldestAtCapacity(t *testing.T) {
	const capacity = 60
	b := NewBuffer(capacity)

	// Push capacity+k samples; the snapshot must hold the last
	// capacity pushed, in arrival order.
	const total = capacity + 17
	for i := 0; i < total; i++ {
		b.Push(float64(i))
	}

	if b.Len() != capacity {
		t.Fatalf("Expected length %d, got %d", capacity, b.Len())
	}

	snap := b.Snapshot()
	if len(snap) != capacity {
		t.Fatalf("Expected snapshot length %d, got %d", capacity, len(snap))
	}
	for i, v := range snap {
		want := float64(total - capacity + i)
		if v != want {
			t.Errorf("Sample %d: expected %v, got %v", i, want, v)
		}
	}
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	b := NewBuffer(4)

	for i := 0; i < 100; i++ {
		b.Push(float64(i))
		if b.Len() > 4 {
			t.Fatalf("Length %d exceeds capacity after push %d", b.Len(), i)
		}
		if len(b.Snapshot()) > 4 {
			t.Fatalf("Snapshot length exceeds capacity after push %d", i)
		}
	}
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	b := NewBuffer(3)
	b.Push(1)
	b.Push(2)

	snap := b.Snapshot()
	snap[0] = 99

	again := b.Snapshot()
	if again[0] != 1 {
		t.Errorf("Mutating a snapshot corrupted the buffer: got %v", again[0])
	}
}

func TestBufferPreservesArrivalOrder(t *testing.T) {
	b := NewBuffer(5)

	// Out-of-order values must be preserved as delivered, not sorted.
	values := []float64{5, 1, 9, 2, 7}
	for _, v := range values {
		b.Push(v)
	}

	snap := b.Snapshot()
	for i, want := range values {
		if snap[i] != want {
			t.Errorf("Sample %d: expected %v, got %v", i, want, snap[i])
		}
	}
}

func TestBufferLast(t *testing.T) {
	b := NewBuffer(3)

	if _, ok := b.Last(); ok {
		t.Error("Expected no last sample in an empty buffer")
	}

	b.Push(1)
	b.Push(2)
	if last, ok := b.Last(); !ok || last != 2 {
		t.Errorf("Expected last sample 2, got %v (ok=%v)", last, ok)
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer(3)
	b.Push(1)
	b.Push(2)

	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Expected empty buffer after reset, got length %d", b.Len())
	}

	b.Push(7)
	snap := b.Snapshot()
	if len(snap) != 1 || snap[0] != 7 {
		t.Errorf("Buffer unusable after reset: %v", snap)
	}
}
