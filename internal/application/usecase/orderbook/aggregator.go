package orderbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"obavg/internal/application/fanout"
	"obavg/internal/application/port"
	"obavg/internal/domain"
	"obavg/internal/metrics"
)

// Resolve scans h until a depth update for symbol arrives and reduces it to
// the average order-book price. It is single-shot: the first matching frame
// decides the result.
//
// Malformed frames, acks and other symbols' updates are skipped. If the
// stream closes first the error wraps domain.ErrStreamClosed; if ctx ends
// first ctx.Err() is returned.
func Resolve(ctx context.Context, h port.FrameHandle, symbol domain.Symbol) (domain.AggregationResult, error) {
	want := symbol.DepthStream()
	for {
		raw, err := h.Recv(ctx)
		if err != nil {
			if errors.Is(err, fanout.ErrClosed) {
				return domain.AggregationResult{}, fmt.Errorf("%s: %w", symbol, domain.ErrStreamClosed)
			}
			return domain.AggregationResult{}, err
		}

		f, err := ParseFrame(raw)
		if err != nil {
			metrics.FramesSkipped.WithLabelValues("malformed").Inc()
			log.Debug().Err(err).Str("symbol", symbol.String()).Msg("skip malformed frame")
			continue
		}

		switch f.Kind {
		case KindConnectionAck:
			metrics.FramesSkipped.WithLabelValues("ack").Inc()
			log.Debug().Str("symbol", symbol.String()).Msg("market stream connected")
			continue
		case KindDepthUpdate:
			if f.Stream != want {
				metrics.FramesSkipped.WithLabelValues("other_stream").Inc()
				continue
			}
		default:
			metrics.FramesSkipped.WithLabelValues("unrecognized").Inc()
			continue
		}

		avg, err := domain.AveragePrice(f.Asks, f.Bids)
		if err != nil {
			return domain.AggregationResult{}, fmt.Errorf("%s: %w", symbol, err)
		}
		return domain.AggregationResult{
			Symbol:       symbol,
			AveragePrice: avg,
			Levels:       len(f.Asks) + len(f.Bids),
			ComputedAt:   time.Now(),
		}, nil
	}
}
