// Package event provides an append-only event log with independent reader
// cursors.
//
// A [Channel] is written by any number of producers and read by any number of
// registered readers. Each reader sees every event written after it
// registered, exactly once, in write order. Events every reader has consumed
// are dropped.
package event

import "sync"

// ReaderID identifies one registered cursor on a Channel.
type ReaderID uint64

// Channel is a multi-producer, multi-consumer event log.
// Writes and reads may happen from different goroutines.
type Channel[T any] struct {
	mu      sync.Mutex
	events  []T
	base    uint64 // absolute index of events[0]
	readers map[ReaderID]uint64
	nextID  ReaderID
}

// NewChannel returns an empty channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{readers: make(map[ReaderID]uint64)}
}

// Register creates a reader positioned at the end of the log.
func (c *Channel[T]) Register() ReaderID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.readers[c.nextID] = c.base + uint64(len(c.events))
	return c.nextID
}

// Unregister drops a reader so it no longer holds back compaction.
func (c *Channel[T]) Unregister(id ReaderID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.readers, id)
	c.compact()
}

// Write appends one event.
func (c *Channel[T]) Write(ev T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.readers) == 0 {
		return
	}
	c.events = append(c.events, ev)
}

// WriteAll appends events in order.
func (c *Channel[T]) WriteAll(evs ...T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.readers) == 0 {
		return
	}
	c.events = append(c.events, evs...)
}

// Read returns every event the reader has not seen and advances its cursor.
// Unknown readers get nil.
func (c *Channel[T]) Read(id ReaderID) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.readers[id]
	if !ok {
		return nil
	}
	end := c.base + uint64(len(c.events))
	if pos >= end {
		return nil
	}
	out := make([]T, end-pos)
	copy(out, c.events[pos-c.base:])
	c.readers[id] = end
	c.compact()
	return out
}

// ReadLast returns only the newest unread event and advances the cursor past
// every unread event.
func (c *Channel[T]) ReadLast(id ReaderID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	pos, ok := c.readers[id]
	if !ok {
		return zero, false
	}
	end := c.base + uint64(len(c.events))
	if pos >= end {
		return zero, false
	}
	last := c.events[len(c.events)-1]
	c.readers[id] = end
	c.compact()
	return last, true
}

// Pending returns how many events the reader has not consumed.
func (c *Channel[T]) Pending(id ReaderID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.readers[id]
	if !ok {
		return 0
	}
	return int(c.base + uint64(len(c.events)) - pos)
}

// Len returns the number of retained events.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// compact drops events consumed by every reader. Caller holds mu.
func (c *Channel[T]) compact() {
	end := c.base + uint64(len(c.events))
	low := end
	for _, pos := range c.readers {
		low = min(low, pos)
	}
	if low == c.base {
		return
	}
	n := int(low - c.base)
	var zero T
	for i := 0; i < n; i++ {
		c.events[i] = zero
	}
	c.events = c.events[n:]
	c.base = low
	if len(c.events) == 0 {
		c.events = nil
	}
}
