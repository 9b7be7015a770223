package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"obavg/internal/application/port"
	"obavg/internal/domain"
	"obavg/internal/metrics"
)

var ErrAlreadyStarted = errors.New("fanout: publisher already started")

// Publisher runs the single read loop that moves frames from a FrameSource
// onto a Bus. It never retries: when the source fails the bus is closed and
// every handle observes end-of-stream.
type Publisher struct {
	source port.FrameSource
	bus    *Bus[domain.RawFrame]

	started atomic.Bool
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func NewPublisher(source port.FrameSource, capacity int) *Publisher {
	return &Publisher{
		source: source,
		bus: NewBus[domain.RawFrame](capacity, WithLagHook(func(n uint64) {
			metrics.FramesDropped.Add(float64(n))
		})),
		done: make(chan struct{}),
	}
}

// Start spawns the read loop. The source must already be connected and
// subscribed. Only the first call starts anything.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go p.run(ctx)
	return nil
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	defer p.bus.Close()
	defer func() {
		if err := p.source.Close(); err != nil {
			log.Debug().Str("source", p.source.Name()).Err(err).Msg("source close")
		}
	}()

	metrics.SourceUp.Set(1)
	defer metrics.SourceUp.Set(0)
	log.Info().Str("source", p.source.Name()).Int("capacity", p.bus.Capacity()).Msg("publisher started")

	for {
		frame, err := p.source.ReadFrame(ctx)
		if err != nil {
			p.setErr(err)
			if ctx.Err() != nil {
				log.Info().Str("source", p.source.Name()).Msg("publisher stopped")
			} else {
				log.Error().Str("source", p.source.Name()).Err(err).Msg("market stream ended, closing fan-out")
			}
			return
		}
		p.bus.Publish(frame)
		metrics.FramesPublished.Inc()
	}
}

func (p *Publisher) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Subscribe returns a handle that sees frames published from now on.
func (p *Publisher) Subscribe() port.FrameHandle {
	return p.bus.Subscribe()
}

// Done is closed after the read loop exits and the bus is closed.
func (p *Publisher) Done() <-chan struct{} { return p.done }

// Err is the error that ended the read loop, nil while running.
func (p *Publisher) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Running reports whether the read loop is live.
func (p *Publisher) Running() bool {
	if !p.started.Load() {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Published is the number of frames put on the bus so far.
func (p *Publisher) Published() uint64 { return p.bus.Published() }

// Lagged is the number of frames skipped by handles that fell behind.
func (p *Publisher) Lagged() uint64 { return p.bus.Lagged() }
