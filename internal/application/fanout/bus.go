// Package fanout republishes one producer's items to any number of
// independent readers without letting slow readers stall the producer.
package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Recv once the bus is closed and the handle has
// drained everything still buffered.
var ErrClosed = errors.New("fanout: bus closed")

// Option configures a Bus.
type Option func(*options)

type options struct {
	onLag func(skipped uint64)
}

// WithLagHook is called from the reader's goroutine whenever a handle skips
// items it fell too far behind on.
func WithLagHook(fn func(skipped uint64)) Option {
	return func(o *options) { o.onLag = fn }
}

// Bus is a single-writer ring buffer. Every Publish overwrites the oldest
// slot once the ring is full; readers that have not consumed that slot yet
// skip forward to the oldest retained item on their next Recv.
type Bus[T any] struct {
	mu     sync.RWMutex
	ring   []T
	next   uint64 // sequence number the next Publish will get
	closed bool
	wake   chan struct{} // closed (and replaced) on every Publish, closed for good on Close

	opts      options
	published atomic.Uint64
	lagged    atomic.Uint64
}

// NewBus creates a bus retaining the most recent capacity items.
// capacity below 1 is treated as 1.
func NewBus[T any](capacity int, opts ...Option) *Bus[T] {
	if capacity < 1 {
		capacity = 1
	}
	b := &Bus[T]{
		ring: make([]T, capacity),
		wake: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Capacity is the number of items retained for lagging readers.
func (b *Bus[T]) Capacity() int { return len(b.ring) }

// Publish appends v and wakes waiting readers. It never waits on readers.
// Publishing to a closed bus is a no-op and reports false.
func (b *Bus[T]) Publish(v T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.ring[b.next%uint64(len(b.ring))] = v
	b.next++
	b.published.Add(1)
	wake := b.wake
	b.wake = make(chan struct{})
	b.mu.Unlock()

	close(wake)
	return true
}

// Close marks the end of the stream. Safe to call more than once.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.wake)
}

// Published is the total number of items accepted by Publish.
func (b *Bus[T]) Published() uint64 { return b.published.Load() }

// Lagged is the total number of items skipped by lagging handles.
func (b *Bus[T]) Lagged() uint64 { return b.lagged.Load() }

// Subscribe returns a handle positioned at "now": it sees only items
// published after this call. On a closed bus the handle is already at
// end-of-stream.
func (b *Bus[T]) Subscribe() *Handle[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Handle[T]{bus: b, cursor: b.next}
}

// oldest is the sequence number of the oldest retained item. Caller holds mu.
func (b *Bus[T]) oldest() uint64 {
	if n := uint64(len(b.ring)); b.next > n {
		return b.next - n
	}
	return 0
}

// Handle is one reader's cursor onto a Bus. A Handle must not be shared
// between goroutines; use Clone to get another cursor.
type Handle[T any] struct {
	bus     *Bus[T]
	cursor  uint64
	dropped uint64
}

// Clone returns an independent handle at the same position. Items already
// evicted from the ring are not replayed.
func (h *Handle[T]) Clone() *Handle[T] {
	return &Handle[T]{bus: h.bus, cursor: h.cursor}
}

// Dropped is the number of items this handle skipped because it lagged.
func (h *Handle[T]) Dropped() uint64 { return h.dropped }

// Recv returns the next item, waiting until one is published, the bus is
// closed (ErrClosed) or ctx is done (ctx.Err()). Items buffered before Close
// are still delivered.
func (h *Handle[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	b := h.bus
	for {
		b.mu.RLock()
		if h.cursor < b.next {
			var skipped uint64
			if oldest := b.oldest(); h.cursor < oldest {
				skipped = oldest - h.cursor
				h.cursor = oldest
			}
			v := b.ring[h.cursor%uint64(len(b.ring))]
			h.cursor++
			b.mu.RUnlock()

			if skipped > 0 {
				h.dropped += skipped
				b.lagged.Add(skipped)
				if b.opts.onLag != nil {
					b.opts.onLag(skipped)
				}
			}
			return v, nil
		}
		if b.closed {
			b.mu.RUnlock()
			return zero, ErrClosed
		}
		wake := b.wake
		b.mu.RUnlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
