// Package circbuf is a fixed-capacity ring of raw analog samples.
//
// The buffer does no locking of its own; the sampler that owns it serialises
// access between the conversion callback and readers.
package circbuf

import (
	"errors"
)

var ErrZeroCapacity = errors.New("circbuf: capacity must be at least 1")

type Buffer struct {
	slots []uint16
	next  int
	count uint64
}

func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, ErrZeroCapacity
	}
	return &Buffer{
		slots: make([]uint16, capacity),
	}, nil
}

// Write stores v in the next slot, overwriting the oldest sample once the
// buffer is full.
func (b *Buffer) Write(v uint16) {
	b.slots[b.next] = v
	b.next++
	if b.next == len(b.slots) {
		b.next = 0
	}
	b.count++
}

func (b *Buffer) Cap() int {
	return len(b.slots)
}

// Len is the number of valid slots: the total writes, capped at capacity.
func (b *Buffer) Len() int {
	if b.count < uint64(len(b.slots)) {
		return int(b.count)
	}
	return len(b.slots)
}

// Snapshot copies the valid slots into dst and returns how many were copied.
// Order is slot order, not write order; the mean doesn't care.
func (b *Buffer) Snapshot(dst []uint16) int {
	return copy(dst, b.slots[:b.Len()])
}

// Mean returns the rounded mean of the valid slots. Before the buffer has
// filled only the samples actually written count, so early means are not
// dragged towards zero. An empty buffer has mean 0.
func (b *Buffer) Mean() int {
	return MeanOf(b.slots[:b.Len()])
}

// MeanOf is the round-half-up integer mean, (2*sum + n) / (2*n).
func MeanOf(samples []uint16) int {
	n := uint64(len(samples))
	if n == 0 {
		return 0
	}
	var sum uint64
	for _, s := range samples {
		sum += uint64(s)
	}
	return int((2*sum + n) / (2 * n))
}
