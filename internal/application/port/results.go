package port

import (
	"context"

	"obavg/internal/domain"
)

// ResultRepository journals computed averages. It is write-only from the
// query path: results are never served back from here.
type ResultRepository interface {
	SaveResult(ctx context.Context, queryID string, res domain.AggregationResult) error
	Close() error
}
