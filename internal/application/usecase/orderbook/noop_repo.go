package orderbook

import (
	"context"

	"obavg/internal/application/port"
	"obavg/internal/domain"
)

type noopRepo struct{}

// NewNoopRepo is the journal used when no storage backend is enabled.
func NewNoopRepo() port.ResultRepository { return &noopRepo{} }

func (n *noopRepo) SaveResult(ctx context.Context, queryID string, res domain.AggregationResult) error {
	return nil
}
func (n *noopRepo) Close() error { return nil }
