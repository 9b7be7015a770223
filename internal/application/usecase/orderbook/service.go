package orderbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"obavg/internal/application/port"
	"obavg/internal/domain"
	"obavg/internal/metrics"
)

const journalTimeout = 2 * time.Second

// Stream hands out fresh read handles onto the shared frame stream.
type Stream interface {
	Subscribe() port.FrameHandle
}

type ServiceDeps struct {
	Stream Stream
	// Symbols is the subscribed set. When Restrict is set, queries for
	// anything else fail fast with ErrUnknownSymbol instead of waiting for a
	// frame that can never arrive.
	Symbols  []domain.Symbol
	Restrict bool
	// Timeout bounds a single query; 0 leaves it to the caller's ctx.
	Timeout time.Duration
	Repo    port.ResultRepository
}

// Service is the inbound query interface of the order book use case.
type Service struct {
	deps    ServiceDeps
	allowed map[domain.Symbol]struct{}
}

func NewService(deps ServiceDeps) *Service {
	if deps.Repo == nil {
		deps.Repo = NewNoopRepo()
	}
	allowed := make(map[domain.Symbol]struct{}, len(deps.Symbols))
	for _, s := range deps.Symbols {
		allowed[s] = struct{}{}
	}
	return &Service{deps: deps, allowed: allowed}
}

// Symbols returns the subscribed symbols.
func (s *Service) Symbols() []domain.Symbol { return s.deps.Symbols }

// AveragePrice resolves the current average order-book price for raw.
func (s *Service) AveragePrice(ctx context.Context, raw string) (res domain.AggregationResult, err error) {
	queryID := uuid.NewString()
	start := time.Now()
	defer func() {
		outcome := Outcome(err)
		metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		metrics.QueryDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("query_id", queryID).
			Str("symbol", raw).
			Str("outcome", outcome).
			Dur("took", time.Since(start)).
			Msg("average price query")
	}()

	symbol, err := domain.NewSymbol(raw)
	if err != nil {
		return res, err
	}
	if s.deps.Restrict {
		if _, ok := s.allowed[symbol]; !ok {
			return res, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
		}
	}

	if s.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
	}

	metrics.ActiveQueries.Inc()
	res, err = Resolve(ctx, s.deps.Stream.Subscribe(), symbol)
	metrics.ActiveQueries.Dec()
	if err != nil {
		return res, err
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if jerr := s.deps.Repo.SaveResult(jctx, queryID, res); jerr != nil {
		metrics.JournalErrors.Inc()
		log.Error().Err(jerr).Str("query_id", queryID).Msg("journal result failed")
	}
	return res, nil
}

// Outcome maps a query error to a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrEmptyOrderBook):
		return "empty_book"
	case errors.Is(err, domain.ErrStreamClosed):
		return "stream_closed"
	case errors.Is(err, domain.ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
