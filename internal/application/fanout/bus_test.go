package fanout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvN(t *testing.T, h *Handle[int], n int) []int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := h.Recv(ctx)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestBusDeliversInOrderToEveryHandle(t *testing.T) {
	bus := NewBus[int](8)
	a := bus.Subscribe()
	b := bus.Subscribe()

	for i := 1; i <= 5; i++ {
		bus.Publish(i)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, recvN(t, a, 5))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, recvN(t, b, 5))
}

func TestBusSubscribeStartsAtNow(t *testing.T) {
	bus := NewBus[int](8)
	bus.Publish(1)
	bus.Publish(2)

	h := bus.Subscribe()
	bus.Publish(3)

	assert.Equal(t, []int{3}, recvN(t, h, 1))
}

func TestBusLaggingHandleSkipsToMostRecent(t *testing.T) {
	var hooked uint64
	bus := NewBus[int](4, WithLagHook(func(n uint64) { hooked += n }))
	slow := bus.Subscribe()

	for i := 1; i <= 10; i++ {
		bus.Publish(i)
	}

	assert.Equal(t, []int{7, 8, 9, 10}, recvN(t, slow, 4))
	assert.Equal(t, uint64(6), slow.Dropped())
	assert.Equal(t, uint64(6), bus.Lagged())
	assert.Equal(t, uint64(6), hooked)
}

func TestBusProducerNotStalledBySlowConsumer(t *testing.T) {
	const n = 100000
	bus := NewBus[int](16)
	idle := bus.Subscribe() // never polled until the end
	_ = bus.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			bus.Publish(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer stalled behind idle consumers")
	}
	assert.Equal(t, uint64(n), bus.Published())

	got := recvN(t, idle, 16)
	assert.Equal(t, n-16, got[0])
	assert.Equal(t, n-1, got[15])
}

func TestBusCloseDrainsThenReportsClosed(t *testing.T) {
	bus := NewBus[int](4)
	h := bus.Subscribe()
	bus.Publish(1)
	bus.Close()
	bus.Close()

	assert.False(t, bus.Publish(2))
	assert.Equal(t, []int{1}, recvN(t, h, 1))

	_, err := h.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	late := bus.Subscribe()
	_, err = late.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBusCloseWakesBlockedReaders(t *testing.T) {
	bus := NewBus[int](4)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		h := bus.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Recv(context.Background())
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	bus.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestHandleRecvCancellation(t *testing.T) {
	bus := NewBus[int](4)
	h := bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandleCloneHasOwnCursor(t *testing.T) {
	bus := NewBus[int](8)
	h := bus.Subscribe()
	bus.Publish(1)
	bus.Publish(2)

	assert.Equal(t, []int{1}, recvN(t, h, 1))
	c := h.Clone()
	assert.Equal(t, []int{2}, recvN(t, c, 1))
	assert.Equal(t, []int{2}, recvN(t, h, 1))
}
